package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"altum/pkg/contracts"
)

func TestHealthService(t *testing.T) {
	hs := NewHealthService(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	health := hs.HealthCheck(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, contracts.Version, health.Version)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, ServiceHealth{Status: "ready"}, ready.Services["leveling"])
	assert.Equal(t, ServiceHealth{Status: "ready"}, ready.Services["fieldbook"])

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	version := hs.Version()
	assert.Equal(t, contracts.Version, version["version"])
	assert.Equal(t, contracts.APIVersion, version["api_version"])
}

func TestNewHealthService_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHealthService(nil).HealthCheck(context.Background())
	})
}
