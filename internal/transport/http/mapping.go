package http

import (
	"errors"

	"altum/internal/fieldbook"
	"altum/internal/leveling"
	api "altum/pkg/contracts/api/v1"
)

// toSurvey converts a request, filling absent elevations with the defaults.
func toSurvey(req api.ComputeRequest, defaultStart, defaultTarget float64) leveling.Survey {
	survey := leveling.Survey{
		Name:            req.Name,
		Observations:    make([]leveling.Observation, len(req.Observations)),
		StartElevation:  defaultStart,
		TargetElevation: defaultTarget,
	}
	if req.StartElevation != nil {
		survey.StartElevation = *req.StartElevation
	}
	if req.TargetElevation != nil {
		survey.TargetElevation = *req.TargetElevation
	}

	for i, o := range req.Observations {
		survey.Observations[i] = leveling.Observation{
			PointID:         o.PointID,
			PartialDistance: toReading(o.PartialDistance),
			Backsight:       toReading(o.Backsight),
			Intermediate:    toReading(o.Intermediate),
			Foresight:       toReading(o.Foresight),
		}
	}
	return survey
}

func toReading(v *float64) leveling.Reading {
	if v == nil {
		return leveling.None()
	}
	return leveling.Some(*v)
}

func fromReading(r leveling.Reading) *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// newComputeResponse renders an outcome. err is the closure error, if any;
// only ErrZeroDistance is reported inside a successful response.
func newComputeResponse(survey leveling.Survey, outcome leveling.Outcome, err error) api.ComputeResponse {
	compensated := outcome.Compensated()
	d := outcome.Diagnostics

	resp := api.ComputeResponse{
		Name:            survey.Name,
		Status:          string(outcome.Status),
		Compensated:     compensated,
		StartElevation:  survey.StartElevation,
		TargetElevation: survey.TargetElevation,
		Rows:            make([]api.Row, len(outcome.Rows)),
		FieldCheck: api.FieldCheck{
			SumBacksight:    d.SumBacksight,
			SumForesight:    d.SumForesight,
			ArithmeticDelta: d.ArithmeticDelta,
			ElevationDelta:  d.ElevationDelta,
			Discrepancy:     d.Discrepancy,
			Tolerance:       leveling.ArithmeticTolerance,
			Passed:          d.ArithmeticOK,
			Message:         fieldbook.CheckMessage(d),
		},
		Closure: api.Closure{
			ClosingError:   d.ClosingError,
			TotalDistance:  d.TotalDistance,
			CorrectionRate: d.CorrectionRate,
		},
		InvalidRows: outcome.InvalidRows,
	}

	for i, row := range outcome.Rows {
		r := api.Row{
			PointID:            row.PointID,
			Kind:               row.Kind.String(),
			PartialDistance:    fromReading(row.PartialDistance),
			Backsight:          fromReading(row.Backsight),
			Intermediate:       fromReading(row.Intermediate),
			Foresight:          fromReading(row.Foresight),
			InstrumentHeight:   fromReading(row.InstrumentHeight),
			Elevation:          row.Elevation,
			CumulativeDistance: row.CumulativeDistance,
		}
		if compensated {
			adj := outcome.Adjusted[i]
			r.Correction = &adj.Correction
			r.AdjustedElevation = &adj.AdjustedElevation
		}
		resp.Rows[i] = r
	}

	profile := fieldbook.Profile(outcome)
	resp.Profile = make([]api.ProfilePoint, len(profile))
	for i, p := range profile {
		resp.Profile[i] = api.ProfilePoint{PointID: p.PointID, Distance: p.Distance, Elevation: p.Elevation}
	}

	if errors.Is(err, leveling.ErrZeroDistance) {
		resp.Warning = leveling.ErrZeroDistance.Error()
	}
	return resp
}

// acceptable reports whether a computation result is returned as a success.
// A line without distance still has valid reduced elevations.
func acceptable(err error) bool {
	return err == nil || errors.Is(err, leveling.ErrZeroDistance)
}
