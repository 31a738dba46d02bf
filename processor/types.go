package processor

// ValidationResult carries the combined findings for one run. Valid is
// true exactly when Errors is empty; warnings never block validity.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ActorInfo identifies one distinct actor found in an actor table.
type ActorInfo struct {
	ActorID       string `json:"actor_id"`
	ActorType     int    `json:"actor_type"`
	ActorTypeName string `json:"actor_type_name"`
}

// Trajectory holds one actor's map track. All four slices are
// index-aligned with that actor's rows; t is the VUT relative time at
// the actor row's step number.
type Trajectory struct {
	Lat     []float64 `json:"lat"`
	Lng     []float64 `json:"lng"`
	Heading []float64 `json:"heading"`
	T       []float64 `json:"t"`
}

// ActorResult is one actor's entry in an evaluation result.
type ActorResult struct {
	ActorID       string     `json:"actor_id"`
	ActorType     int        `json:"actor_type"`
	ActorTypeName string     `json:"actor_type_name"`
	Trajectory    Trajectory `json:"trajectory"`
}

// VehicleChannels holds the VUT timeseries for the fixed channel list
// the frontend plots. Every slice has the vehicle table's row count;
// channels whose source column is absent are all zeros.
type VehicleChannels struct {
	T             []float64 `json:"t"`
	Lat           []float64 `json:"lat"`
	Lng           []float64 `json:"lng"`
	Heading       []float64 `json:"heading"`
	VelMs         []float64 `json:"vel_ms"`
	VelKmh        []float64 `json:"vel_kmh"`
	AcclLat       []float64 `json:"accl_lat"`
	AcclLng       []float64 `json:"accl_lng"`
	BrakingLevel  []float64 `json:"braking_level"`
	ThrottleLevel []float64 `json:"throttle_level"`
	SteeringPct   []float64 `json:"steering_pct"`
	IndLeft       []float64 `json:"ind_left"`
	IndRight      []float64 `json:"ind_right"`
	IndHazard     []float64 `json:"ind_hazard"`
	IndReverse    []float64 `json:"ind_reverse"`
	IndBraking    []float64 `json:"ind_braking"`
}

// EvaluationResult is the full outcome of evaluating one run:
// validation findings plus the arrays the visualisation needs.
type EvaluationResult struct {
	TestCaseID string           `json:"test_case_id"`
	RunID      string           `json:"run_id"`
	Validation ValidationResult `json:"validation"`
	Vehicle    VehicleChannels  `json:"vut"`
	Actors     []ActorResult    `json:"actors"`
}
