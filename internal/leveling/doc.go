// Package leveling reduces differential-leveling field books and distributes
// the closing error of a leveling line across its stations.
//
// # Method
//
// The reduction follows the height-of-instrument (collimation) method. The
// first observation carries a backsight to the starting benchmark and sets up
// the instrument:
//
//	HI = start elevation + backsight
//
// Every following row is classified once by which readings it carries:
//
//   - Intermediate: elevation = HI - intermediate, HI unchanged
//   - TurningPoint: elevation = HI - foresight, then HI = elevation + backsight
//   - Foresight:    elevation = HI - foresight, setup ends
//   - Invalid:      neither reading present, elevation reported as 0
//
// # Closure
//
// Compensate first checks the field book arithmetic:
//
//	(ΣBS - ΣFS) - (last elevation - start elevation)
//
// must be below ArithmeticTolerance (2 mm). It then computes the closing error
// against the known arrival elevation and distributes it linearly by
// cumulative distance:
//
//	k          = -closing error / total distance
//	correction = cumulative distance * k
//
// # Usage
//
//	calc := leveling.NewCalculator(slog.Default())
//	outcome, err := calc.Calculate(ctx, leveling.Survey{
//	    Name:            "line-1",
//	    Observations:    obs,
//	    StartElevation:  725.000,
//	    TargetElevation: 725.000,
//	})
//	var inconsistent *leveling.ArithmeticInconsistencyError
//	switch {
//	case errors.As(err, &inconsistent):
//	    // field book has a transcription error; outcome.Diagnostics explains it
//	case errors.Is(err, leveling.ErrZeroDistance):
//	    // outcome.Rows holds the uncompensated elevations
//	case err != nil:
//	    return err
//	}
package leveling
