// Package api contains the HTTP contract of the ALTUM leveling service.
// Version v1 represents the current stable API version.
package api

// Observation is one field book row. Absent readings are JSON null or
// omitted.
type Observation struct {
	PointID         string   `json:"point_id" validate:"max=64"`
	PartialDistance *float64 `json:"partial_distance,omitempty" validate:"omitempty,finite,gte=0"`
	Backsight       *float64 `json:"backsight,omitempty" validate:"omitempty,finite"`
	Intermediate    *float64 `json:"intermediate,omitempty" validate:"omitempty,finite"`
	Foresight       *float64 `json:"foresight,omitempty" validate:"omitempty,finite"`
}

// ComputeRequest asks for the reduction and compensation of one leveling
// line. Missing elevations fall back to the configured benchmark.
type ComputeRequest struct {
	Name            string        `json:"name,omitempty" validate:"max=128"`
	StartElevation  *float64      `json:"start_elevation,omitempty" validate:"omitempty,finite"`
	TargetElevation *float64      `json:"target_elevation,omitempty" validate:"omitempty,finite"`
	Observations    []Observation `json:"observations" validate:"dive"`
}

// BatchRequest computes several independent lines in one call.
type BatchRequest struct {
	Surveys []ComputeRequest `json:"surveys" validate:"required,min=1,dive"`
}
