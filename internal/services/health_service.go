package services

import (
	"context"
	"io"
	"log/slog"
	"math"
	"runtime"
	"time"

	"altum/internal/fieldbook"
	"altum/internal/leveling"
	"altum/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck runs a known leveling line through the engine and renders a
// template workbook.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]interface{}{
			"leveling":  hs.checkLeveling(),
			"fieldbook": hs.checkFieldBook(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("component", name),
				slog.String("message", sh.Message),
			)
			status.Status = "not_ready"
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// checkLeveling compensates a one-setup line whose answer is known.
func (hs *HealthService) checkLeveling() ServiceHealth {
	obs := []leveling.Observation{
		{PointID: "BM", Backsight: leveling.Some(1.5)},
		{PointID: "P1", PartialDistance: leveling.Some(50), Foresight: leveling.Some(1.2)},
	}
	reduced, err := leveling.Reduce(obs, 725)
	if err != nil {
		return ServiceHealth{Status: "error", Message: err.Error()}
	}
	outcome, err := leveling.Compensate(reduced, 725, 725.25)
	if err != nil {
		return ServiceHealth{Status: "error", Message: err.Error()}
	}
	if math.Abs(outcome.Adjusted[1].AdjustedElevation-725.25) > 1e-9 {
		return ServiceHealth{Status: "error", Message: "compensation self-test returned an unexpected elevation"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkFieldBook() ServiceHealth {
	if err := fieldbook.WriteTemplate(io.Discard); err != nil {
		return ServiceHealth{Status: "error", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}
