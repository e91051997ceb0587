package fieldbook

import "altum/internal/leveling"

// ProfilePoint is one vertex of the longitudinal profile chart.
type ProfilePoint struct {
	PointID  string  `json:"point_id"`
	Distance float64 `json:"distance"`
	// Elevation is the adjusted elevation when the line was compensated and
	// the unadjusted one otherwise.
	Elevation float64 `json:"elevation"`
}

// Profile returns the chart series of cumulative distance against elevation.
// Invalid rows carry no meaningful elevation and are left out.
func Profile(outcome leveling.Outcome) []ProfilePoint {
	compensated := outcome.Compensated()
	points := make([]ProfilePoint, 0, len(outcome.Rows))

	for i, row := range outcome.Rows {
		if row.Kind == leveling.KindInvalid {
			continue
		}
		elevation := row.Elevation
		if compensated {
			elevation = outcome.Adjusted[i].AdjustedElevation
		}
		points = append(points, ProfilePoint{
			PointID:   row.PointID,
			Distance:  row.CumulativeDistance,
			Elevation: elevation,
		})
	}

	return points
}
