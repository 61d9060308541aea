package models

// FrameFeatures is the full set of metrics derived from one pose observation.
// It is created by the feature extractor and never mutated afterwards; the
// history buffer, aggregator, and handlers only read it.
type FrameFeatures struct {
	Timestamp        int64               `json:"timestamp"`
	FrameNumber      int                 `json:"frame_number"`
	SecondNumber     int                 `json:"second_number"`
	RawLandmarks     []Landmark          `json:"raw_landmarks"`
	VisibleLandmarks map[string]Landmark `json:"visible_landmarks"`
	Angles           map[string]float64  `json:"angles"`
	Symmetry         map[string]float64  `json:"symmetry"`
	Balance          map[string]float64  `json:"balance"`
	TorsoStability   float64             `json:"torso_stability"`
	Distances        map[string]float64  `json:"distances"`
	PointStatistics  PointStatistics     `json:"point_statistics"`
	MotionQuality    *MotionQuality      `json:"motion_quality,omitempty"`
}

// PointStatistics summarizes the point cloud of landmarks whose visibility
// cleared the configured threshold.
type PointStatistics struct {
	MeanX          float64     `json:"mean_x"`
	MeanY          float64     `json:"mean_y"`
	VarianceX      float64     `json:"variance_x"`
	VarianceY      float64     `json:"variance_y"`
	Centroid       Landmark    `json:"centroid"`
	BoundingBox    BoundingBox `json:"bounding_box"`
	VisibleCount   int         `json:"visible_count"`
	MeanVisibility float64     `json:"mean_visibility"`
}

type BoundingBox struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MotionQuality scores frame-to-frame movement over a short history window.
// It is only present once enough history has accumulated.
type MotionQuality struct {
	Smoothness  float64 `json:"smoothness"`
	Consistency float64 `json:"consistency"`
	Stability   float64 `json:"stability"`
}

// SecondAggregate is one completed whole-second bucket of frames, produced on
// second rollover and never mutated after creation.
type SecondAggregate struct {
	SecondNumber          int                 `json:"second_number"`
	FrameCount            int                 `json:"frame_count"`
	TimestampStart        int64               `json:"timestamp_start"`
	TimestampEnd          int64               `json:"timestamp_end"`
	UnionVisibleLandmarks map[string]Landmark `json:"union_visible_landmarks"`
	AverageAngles         map[string]float64  `json:"average_angles"`
	AverageSymmetry       map[string]float64  `json:"average_symmetry"`
	AverageBalance        map[string]float64  `json:"average_balance"`
	LastFrameStatistics   PointStatistics     `json:"last_frame_statistics"`
	TorsoStability        float64             `json:"torso_stability"`
}

// Insights is the qualitative assessment generated from recent history.
// Sufficient is false when fewer frames than the minimum sample count were
// available; the assessments are empty in that case.
type Insights struct {
	Sufficient            bool     `json:"sufficient"`
	Message               string   `json:"message,omitempty"`
	Posture               string   `json:"posture,omitempty"`
	Symmetry              string   `json:"symmetry,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
	AverageSymmetry       float64  `json:"average_symmetry"`
	AverageBalance        float64  `json:"average_balance"`
	AverageTorsoStability float64  `json:"average_torso_stability"`
	SampleCount           int      `json:"sample_count"`
}

// ReportDuration carries the session timing metadata for a report.
type ReportDuration struct {
	SelectedDuration int     `json:"selected_duration"`
	ActualDuration   float64 `json:"actual_duration"`
	Timestamp        string  `json:"timestamp"`
}

// SessionReport is the exportable snapshot assembled when a session ends.
// Everything in it is plain nested records and arrays, safe to hand off as
// JSON to storage or the dashboard.
type SessionReport struct {
	SessionID           string                   `json:"session_id"`
	Metrics             *FrameFeatures           `json:"metrics"`
	Duration            ReportDuration           `json:"duration"`
	PoseHistory         []*FrameFeatures         `json:"pose_history"`
	PerSecondAggregates map[int]*SecondAggregate `json:"per_second_aggregates"`
	Insights            *Insights                `json:"insights"`
}
