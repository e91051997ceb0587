package leveling

// Reduce computes instrument heights, elevations and cumulative distances for
// the observations, starting from the known elevation of the first station.
//
// Rows classified as KindInvalid get the sentinel elevation 0 and no
// instrument height; Reduce does not fail on them so Compensate can report
// every offending row at once.
func Reduce(observations []Observation, initialElevation float64) ([]ReducedRow, error) {
	if len(observations) == 0 {
		return nil, ErrEmptySurvey
	}
	first := observations[0]
	if !first.Backsight.Valid {
		return nil, ErrMissingBacksight
	}

	rows := make([]ReducedRow, 0, len(observations))

	hi := initialElevation + first.Backsight.Value
	distance := 0.0
	rows = append(rows, ReducedRow{
		Observation:        first,
		Kind:               KindStart,
		InstrumentHeight:   Some(hi),
		Elevation:          initialElevation,
		CumulativeDistance: distance,
	})

	for i := 1; i < len(observations); i++ {
		obs := observations[i]
		distance += obs.PartialDistance.Or(0)

		row := ReducedRow{
			Observation:        obs,
			Kind:               Classify(i, obs),
			CumulativeDistance: distance,
		}

		switch row.Kind {
		case KindIntermediate:
			row.Elevation = hi - obs.Intermediate.Value
			row.InstrumentHeight = Some(hi)
		case KindTurningPoint:
			row.Elevation = hi - obs.Foresight.Value
			hi = row.Elevation + obs.Backsight.Value
			row.InstrumentHeight = Some(hi)
		case KindForesight:
			row.Elevation = hi - obs.Foresight.Value
		case KindInvalid:
			row.Elevation = 0
		}

		rows = append(rows, row)
	}

	return rows, nil
}
