package leveling

// ArithmeticTolerance is the maximum accepted disagreement, in metres, between
// the field book sums and the row-by-row reduction.
const ArithmeticTolerance = 0.002

// Observation is one station of the field book, in survey order.
type Observation struct {
	PointID         string  `json:"point_id"`
	PartialDistance Reading `json:"partial_distance"`
	Backsight       Reading `json:"backsight"`
	Intermediate    Reading `json:"intermediate"`
	Foresight       Reading `json:"foresight"`
}

// RowKind is the role an observation plays in the reduction.
type RowKind int

const (
	// KindStart is the first row, which only sets up the instrument.
	KindStart RowKind = iota
	// KindIntermediate is a side shot that leaves the setup unchanged.
	KindIntermediate
	// KindTurningPoint closes one setup with a foresight and opens the next
	// with a backsight.
	KindTurningPoint
	// KindForesight is a foresight that ends the current setup.
	KindForesight
	// KindInvalid has neither an intermediate nor a foresight reading.
	KindInvalid
)

// String returns the string representation of the row kind
func (k RowKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindIntermediate:
		return "intermediate"
	case KindTurningPoint:
		return "turning_point"
	case KindForesight:
		return "foresight"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k RowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify determines the role of the observation at position index.
// Intermediate wins over foresight when both are present.
func Classify(index int, obs Observation) RowKind {
	switch {
	case index == 0:
		return KindStart
	case obs.Intermediate.Valid:
		return KindIntermediate
	case obs.Foresight.Valid && obs.Backsight.Valid:
		return KindTurningPoint
	case obs.Foresight.Valid:
		return KindForesight
	default:
		return KindInvalid
	}
}

// ReducedRow is an observation together with its reduction.
type ReducedRow struct {
	Observation
	Kind RowKind `json:"kind"`
	// InstrumentHeight is absent on terminal foresight and invalid rows.
	InstrumentHeight   Reading `json:"instrument_height"`
	Elevation          float64 `json:"elevation"`
	CumulativeDistance float64 `json:"cumulative_distance"`
}

// AdjustedRow is a reduced row after closure compensation.
type AdjustedRow struct {
	ReducedRow
	Correction        float64 `json:"correction"`
	AdjustedElevation float64 `json:"adjusted_elevation"`
}

// Status summarises how far a survey got through compensation.
type Status string

const (
	StatusCompensated            Status = "compensated"
	StatusArithmeticInconsistent Status = "arithmetic_inconsistent"
	StatusInvalidRows            Status = "invalid_rows"
	StatusZeroDistance           Status = "zero_distance"
)

// Diagnostics are the scalar results of the field check and closure.
type Diagnostics struct {
	SumBacksight    float64 `json:"sum_back"`
	SumForesight    float64 `json:"sum_fore"`
	ArithmeticDelta float64 `json:"arithmetic_delta"`
	ElevationDelta  float64 `json:"elevation_delta"`
	Discrepancy     float64 `json:"discrepancy"`
	ArithmeticOK    bool    `json:"arithmetic_ok"`
	ClosingError    float64 `json:"closing_error"`
	TotalDistance   float64 `json:"total_distance"`
	// CorrectionRate is k, the correction per unit of cumulative distance.
	CorrectionRate float64 `json:"correction_rate"`
}

// Outcome is the result of compensating one reduced survey.
type Outcome struct {
	Status      Status        `json:"status"`
	Rows        []ReducedRow  `json:"rows"`
	Adjusted    []AdjustedRow `json:"adjusted,omitempty"`
	Diagnostics Diagnostics   `json:"diagnostics"`
	// InvalidRows lists the indexes of rows classified as KindInvalid.
	InvalidRows []int `json:"invalid_rows,omitempty"`
}

// Compensated reports whether adjusted elevations are available.
func (o Outcome) Compensated() bool {
	return o.Status == StatusCompensated && len(o.Adjusted) == len(o.Rows)
}

// Survey is one leveling line ready for calculation.
type Survey struct {
	Name            string        `json:"name"`
	Observations    []Observation `json:"observations"`
	StartElevation  float64       `json:"start_elevation"`
	TargetElevation float64       `json:"target_elevation"`
}
