package leveling

import "math"

// Compensate runs the arithmetic field check on the reduced rows and, when it
// passes, distributes the closing error linearly by cumulative distance.
//
// The returned Outcome always carries the rows and diagnostics computed so
// far. The error is one of *ArithmeticInconsistencyError, *InvalidRowError,
// ErrZeroDistance or ErrEmptySurvey; only a nil error means Outcome.Adjusted
// is populated.
func Compensate(reduced []ReducedRow, startElevation, targetElevation float64) (Outcome, error) {
	outcome := Outcome{Rows: reduced}
	if len(reduced) == 0 {
		return outcome, ErrEmptySurvey
	}

	diag := checkArithmetic(reduced, startElevation)
	last := reduced[len(reduced)-1]
	diag.ClosingError = last.Elevation - targetElevation
	diag.TotalDistance = last.CumulativeDistance
	outcome.Diagnostics = diag
	outcome.InvalidRows = invalidRows(reduced)

	if !diag.ArithmeticOK {
		outcome.Status = StatusArithmeticInconsistent
		return outcome, &ArithmeticInconsistencyError{Discrepancy: diag.Discrepancy}
	}

	if len(outcome.InvalidRows) > 0 {
		outcome.Status = StatusInvalidRows
		return outcome, &InvalidRowError{Rows: outcome.InvalidRows}
	}

	if diag.TotalDistance <= 0 {
		outcome.Status = StatusZeroDistance
		return outcome, ErrZeroDistance
	}

	k := -diag.ClosingError / diag.TotalDistance
	outcome.Diagnostics.CorrectionRate = k

	adjusted := make([]AdjustedRow, len(reduced))
	for i, row := range reduced {
		correction := row.CumulativeDistance * k
		adjusted[i] = AdjustedRow{
			ReducedRow:        row,
			Correction:        correction,
			AdjustedElevation: row.Elevation + correction,
		}
	}
	outcome.Adjusted = adjusted
	outcome.Status = StatusCompensated

	return outcome, nil
}

// checkArithmetic compares the backsight/foresight sums with the elevation
// difference produced by the reduction.
func checkArithmetic(reduced []ReducedRow, startElevation float64) Diagnostics {
	var d Diagnostics
	for _, row := range reduced {
		d.SumBacksight += row.Backsight.Or(0)
		d.SumForesight += row.Foresight.Or(0)
	}
	d.ArithmeticDelta = d.SumBacksight - d.SumForesight
	d.ElevationDelta = reduced[len(reduced)-1].Elevation - startElevation
	d.Discrepancy = d.ArithmeticDelta - d.ElevationDelta
	d.ArithmeticOK = math.Abs(d.Discrepancy) < ArithmeticTolerance
	return d
}

func invalidRows(reduced []ReducedRow) []int {
	var idx []int
	for i, row := range reduced {
		if row.Kind == KindInvalid {
			idx = append(idx, i)
		}
	}
	return idx
}
