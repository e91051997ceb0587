package leveling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptySurvey is returned when a survey has no observations.
	ErrEmptySurvey = errors.New("survey has no observations")
	// ErrMissingBacksight is returned when the first observation has no
	// backsight, so no instrument setup can be established.
	ErrMissingBacksight = errors.New("first observation has no backsight")
	// ErrZeroDistance is returned when the line has no accumulated distance,
	// so the closing error cannot be distributed.
	ErrZeroDistance = errors.New("total distance is zero, compensation undefined")
)

// ArithmeticInconsistencyError reports that the field book sums disagree with
// the row-by-row reduction by more than ArithmeticTolerance.
type ArithmeticInconsistencyError struct {
	Discrepancy float64
}

// Error implements the error interface
func (e *ArithmeticInconsistencyError) Error() string {
	return fmt.Sprintf("arithmetic check failed: discrepancy %.4f m exceeds %.3f m", e.Discrepancy, ArithmeticTolerance)
}

// InvalidRowError reports rows that carry neither an intermediate nor a
// foresight reading. Rows holds zero-based indexes.
type InvalidRowError struct {
	Rows []int
}

// Error implements the error interface
func (e *InvalidRowError) Error() string {
	idx := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		idx[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("rows without intermediate or foresight reading: %s", strings.Join(idx, ", "))
}
