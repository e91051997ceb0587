package api

// Row is one reduced field book row, with its compensation when available.
type Row struct {
	PointID            string   `json:"point_id"`
	Kind               string   `json:"kind"`
	PartialDistance    *float64 `json:"partial_distance"`
	Backsight          *float64 `json:"backsight"`
	Intermediate       *float64 `json:"intermediate"`
	Foresight          *float64 `json:"foresight"`
	InstrumentHeight   *float64 `json:"instrument_height"`
	Elevation          float64  `json:"elevation"`
	CumulativeDistance float64  `json:"cumulative_distance"`
	Correction         *float64 `json:"correction,omitempty"`
	AdjustedElevation  *float64 `json:"adjusted_elevation,omitempty"`
}

// FieldCheck is the arithmetic check of the field book.
type FieldCheck struct {
	SumBacksight    float64 `json:"sum_back"`
	SumForesight    float64 `json:"sum_fore"`
	ArithmeticDelta float64 `json:"arithmetic_delta"`
	ElevationDelta  float64 `json:"elevation_delta"`
	Discrepancy     float64 `json:"discrepancy"`
	Tolerance       float64 `json:"tolerance"`
	Passed          bool    `json:"passed"`
	Message         string  `json:"message"`
}

// Closure describes the misclosure against the target benchmark.
type Closure struct {
	ClosingError   float64 `json:"closing_error"`
	TotalDistance  float64 `json:"total_distance"`
	CorrectionRate float64 `json:"correction_rate"`
}

// ProfilePoint is one vertex of the cumulative distance vs elevation chart.
type ProfilePoint struct {
	PointID   string  `json:"point_id"`
	Distance  float64 `json:"distance"`
	Elevation float64 `json:"elevation"`
}

// ComputeResponse is the result of one leveling line.
type ComputeResponse struct {
	Name            string         `json:"name,omitempty"`
	Status          string         `json:"status"`
	Compensated     bool           `json:"compensated"`
	StartElevation  float64        `json:"start_elevation"`
	TargetElevation float64        `json:"target_elevation"`
	Rows            []Row          `json:"rows"`
	FieldCheck      FieldCheck     `json:"field_check"`
	Closure         Closure        `json:"closure"`
	InvalidRows     []int          `json:"invalid_rows,omitempty"`
	Profile         []ProfilePoint `json:"profile"`
	Warning         string         `json:"warning,omitempty"`
}

// Problem is the RFC 7807 summary of a failed line inside a batch.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// BatchItem is one line of a batch; Result is present whenever rows could be
// reduced, even if the line then failed.
type BatchItem struct {
	Name   string           `json:"name,omitempty"`
	Result *ComputeResponse `json:"result,omitempty"`
	Error  *Problem         `json:"error,omitempty"`
}

// BatchResponse holds the batch results in request order.
type BatchResponse struct {
	Results   []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}
