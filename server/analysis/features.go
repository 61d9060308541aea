package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pose-analyzer/server/config"
	"github.com/san-kum/pose-analyzer/server/models"
)

// insufficientDataScore is the neutral prior reported for motion-quality
// factors when the window holds too few usable samples. It is a documented
// approximation ("assume decent"), not a measured value.
const insufficientDataScore = 85.0

// symmetryPairs lists the joints scored for left/right symmetry. The key is
// the map entry in FrameFeatures.Symmetry; the prefixed forms index into the
// angles map.
var symmetryPairs = []string{"elbow", "knee", "shoulder", "hip"}

// Extractor computes frame features from raw landmark frames. It is
// stateless apart from configuration; temporal smoothing reads the rolling
// history passed in by the caller.
type Extractor struct {
	visibilityThreshold float64
	smoothingWindow     int
}

func NewExtractor(cfg config.AnalysisConfig) *Extractor {
	window := cfg.SmoothingWindow
	if window < 2 {
		window = 5
	}
	threshold := cfg.VisibilityThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Extractor{
		visibilityThreshold: threshold,
		smoothingWindow:     window,
	}
}

// Extract derives the full feature record for one pose observation. It
// returns nil when the frame carries fewer than the 33 expected landmarks;
// that is a skip signal, not an error. Each metric block is guarded by the
// total geometric primitives, so a partially visible frame still yields a
// best-effort record. The caller appends the result to history.
func (e *Extractor) Extract(landmarks []models.Landmark, timestamp int64, frameNumber, secondNumber int, history *History) *models.FrameFeatures {
	if len(landmarks) < models.NumLandmarks {
		return nil
	}

	raw := make([]models.Landmark, models.NumLandmarks)
	copy(raw, landmarks[:models.NumLandmarks])

	f := &models.FrameFeatures{
		Timestamp:        timestamp,
		FrameNumber:      frameNumber,
		SecondNumber:     secondNumber,
		RawLandmarks:     raw,
		VisibleLandmarks: e.visibleLandmarks(raw),
		Angles:           jointAngles(raw),
	}

	f.Symmetry = symmetryScores(f.Angles)
	f.TorsoStability = torsoStability(raw)
	f.Balance = balanceScores(raw)
	f.Distances = keyDistances(raw)
	f.PointStatistics = e.pointStatistics(raw)

	if history != nil && history.Len() >= e.smoothingWindow {
		f.MotionQuality = e.motionQuality(f, history)
	}

	return f
}

func (e *Extractor) visibleLandmarks(landmarks []models.Landmark) map[string]models.Landmark {
	visible := make(map[string]models.Landmark)
	for i, lm := range landmarks {
		if lm.Visibility > e.visibilityThreshold {
			visible[models.LandmarkName(i)] = lm
		}
	}
	return visible
}

func jointAngles(lm []models.Landmark) map[string]float64 {
	angles := map[string]float64{
		"left_elbow":     Angle(lm[models.LeftShoulder], lm[models.LeftElbow], lm[models.LeftWrist]),
		"right_elbow":    Angle(lm[models.RightShoulder], lm[models.RightElbow], lm[models.RightWrist]),
		"left_knee":      Angle(lm[models.LeftHip], lm[models.LeftKnee], lm[models.LeftAnkle]),
		"right_knee":     Angle(lm[models.RightHip], lm[models.RightKnee], lm[models.RightAnkle]),
		"left_shoulder":  Angle(lm[models.LeftElbow], lm[models.LeftShoulder], lm[models.LeftHip]),
		"right_shoulder": Angle(lm[models.RightElbow], lm[models.RightShoulder], lm[models.RightHip]),
		"left_hip":       Angle(lm[models.LeftShoulder], lm[models.LeftHip], lm[models.LeftKnee]),
		"right_hip":      Angle(lm[models.RightShoulder], lm[models.RightHip], lm[models.RightKnee]),
	}
	angles["torso_vertical"] = torsoVerticalAngle(lm)
	return angles
}

// torsoVerticalAngle is the tilt of the shoulder-mid to hip-mid line against
// the vertical image axis, in degrees.
func torsoVerticalAngle(lm []models.Landmark) float64 {
	midShoulder := Midpoint(lm[models.LeftShoulder], lm[models.RightShoulder])
	midHip := Midpoint(lm[models.LeftHip], lm[models.RightHip])

	dx := math.Abs(midShoulder.X - midHip.X)
	dy := math.Abs(midShoulder.Y - midHip.Y)
	if dx == 0 && dy == 0 {
		return 0
	}

	deg := math.Atan2(dx, dy) * 180 / math.Pi
	if math.IsNaN(deg) {
		return 0
	}
	return deg
}

// symmetryScores compares corresponding left/right angles. The score is the
// unscaled convention, max(0, 100 - |left-right|), applied uniformly across
// the whole system. Overall is the arithmetic mean over all tracked pairs.
func symmetryScores(angles map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(symmetryPairs)+1)
	values := make([]float64, 0, len(symmetryPairs))

	for _, pair := range symmetryPairs {
		left, lok := angles["left_"+pair]
		right, rok := angles["right_"+pair]
		if !lok || !rok {
			continue
		}
		score := clampScore(100 - math.Abs(left-right))
		scores[pair] = score
		values = append(values, score)
	}

	if len(values) > 0 {
		scores["overall"] = stat.Mean(values, nil)
	} else {
		scores["overall"] = 0
	}
	return scores
}

// torsoStability compares shoulder width against hip width as a coarse
// upright-posture proxy. A zero shoulder width cannot be evaluated and is
// treated as neutral (100).
func torsoStability(lm []models.Landmark) float64 {
	shoulderWidth := Distance2D(lm[models.LeftShoulder], lm[models.RightShoulder])
	hipWidth := Distance2D(lm[models.LeftHip], lm[models.RightHip])

	if shoulderWidth == 0 {
		return 100
	}
	return clampScore(100 - math.Abs(shoulderWidth-hipWidth)/shoulderWidth*100)
}

// balanceScores measures hip midpoint against ankle midpoint, normalized by
// shoulder width. The lateral score uses the x offset; the anteroposterior
// score uses depth and stays neutral when the frame carries no z data.
func balanceScores(lm []models.Landmark) map[string]float64 {
	shoulderWidth := Distance2D(lm[models.LeftShoulder], lm[models.RightShoulder])
	if shoulderWidth == 0 {
		return map[string]float64{"lateral": 100, "anteroposterior": 100, "overall": 100}
	}

	midHip := Midpoint(lm[models.LeftHip], lm[models.RightHip])
	midAnkle := Midpoint(lm[models.LeftAnkle], lm[models.RightAnkle])

	lateral := clampScore(100 - math.Abs(midHip.X-midAnkle.X)/shoulderWidth*100)

	anteroposterior := 100.0
	if midHip.Z != 0 || midAnkle.Z != 0 {
		anteroposterior = clampScore(100 - math.Abs(midHip.Z-midAnkle.Z)/shoulderWidth*100)
	}

	return map[string]float64{
		"lateral":         lateral,
		"anteroposterior": anteroposterior,
		"overall":         (lateral + anteroposterior) / 2,
	}
}

func keyDistances(lm []models.Landmark) map[string]float64 {
	midShoulder := Midpoint(lm[models.LeftShoulder], lm[models.RightShoulder])
	midHip := Midpoint(lm[models.LeftHip], lm[models.RightHip])

	return map[string]float64{
		"shoulder_width": Distance2D(lm[models.LeftShoulder], lm[models.RightShoulder]),
		"hip_width":      Distance2D(lm[models.LeftHip], lm[models.RightHip]),
		"torso_length":   Distance3D(midShoulder, midHip),
		"stance_width":   Distance2D(lm[models.LeftAnkle], lm[models.RightAnkle]),
	}
}

// pointStatistics summarizes the landmarks that cleared the visibility
// threshold: per-axis mean and variance, centroid, axis-aligned bounding
// box, and the filtered count.
func (e *Extractor) pointStatistics(landmarks []models.Landmark) models.PointStatistics {
	var xs, ys, vis []float64
	box := models.BoundingBox{}
	first := true

	for _, lm := range landmarks {
		if lm.Visibility <= e.visibilityThreshold {
			continue
		}
		xs = append(xs, lm.X)
		ys = append(ys, lm.Y)
		vis = append(vis, lm.Visibility)

		if first {
			box.MinX, box.MaxX = lm.X, lm.X
			box.MinY, box.MaxY = lm.Y, lm.Y
			first = false
			continue
		}
		box.MinX = math.Min(box.MinX, lm.X)
		box.MaxX = math.Max(box.MaxX, lm.X)
		box.MinY = math.Min(box.MinY, lm.Y)
		box.MaxY = math.Max(box.MaxY, lm.Y)
	}

	if len(xs) == 0 {
		return models.PointStatistics{}
	}

	box.Width = box.MaxX - box.MinX
	box.Height = box.MaxY - box.MinY

	stats := models.PointStatistics{
		MeanX:          stat.Mean(xs, nil),
		MeanY:          stat.Mean(ys, nil),
		BoundingBox:    box,
		VisibleCount:   len(xs),
		MeanVisibility: stat.Mean(vis, nil),
	}
	if len(xs) > 1 {
		stats.VarianceX = stat.Variance(xs, nil)
		stats.VarianceY = stat.Variance(ys, nil)
	}
	stats.Centroid = models.Landmark{X: stats.MeanX, Y: stats.MeanY, Visibility: stats.MeanVisibility}
	return stats
}

// motionQuality scores movement over the smoothing window (current frame
// plus the most recent prior frames). Callers only invoke it once history
// holds at least a full window of prior frames.
func (e *Extractor) motionQuality(current *models.FrameFeatures, history *History) *models.MotionQuality {
	prior := history.Recent(e.smoothingWindow - 1)

	elbows := make([]float64, 0, e.smoothingWindow)
	symmetry := make([]float64, 0, e.smoothingWindow)
	for _, p := range prior {
		if v, ok := p.Angles["left_elbow"]; ok {
			elbows = append(elbows, v)
		}
		symmetry = append(symmetry, p.Symmetry["overall"])
	}
	if v, ok := current.Angles["left_elbow"]; ok {
		elbows = append(elbows, v)
	}
	symmetry = append(symmetry, current.Symmetry["overall"])

	smoothness := insufficientDataScore
	if len(elbows) >= e.smoothingWindow {
		smoothness = clampScore(100 - meanAbsDiff(elbows)*2)
	}

	consistency := insufficientDataScore
	if len(symmetry) >= e.smoothingWindow {
		consistency = clampScore(100 - meanAbsDiff(symmetry)*2)
	}

	// Stability reads the hip landmarks by name from the visible-landmark
	// maps. A frame whose hips dropped below the visibility threshold
	// contributes the zero point, which skews the displacement; that
	// approximation is kept for output parity with the original pipeline.
	stability := insufficientDataScore
	if len(prior) > 0 {
		prev := prior[len(prior)-1]
		prevMid := Midpoint(prev.VisibleLandmarks["left_hip"], prev.VisibleLandmarks["right_hip"])
		curMid := Midpoint(current.VisibleLandmarks["left_hip"], current.VisibleLandmarks["right_hip"])
		stability = clampScore(100 - Distance2D(prevMid, curMid)*500)
	}

	return &models.MotionQuality{
		Smoothness:  smoothness,
		Consistency: consistency,
		Stability:   stability,
	}
}

// meanAbsDiff averages the absolute successive differences of a series.
func meanAbsDiff(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(series); i++ {
		sum += math.Abs(series[i] - series[i-1])
	}
	return sum / float64(len(series)-1)
}
