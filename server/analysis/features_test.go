package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pose-analyzer/server/config"
	"github.com/san-kum/pose-analyzer/server/models"
)

func testExtractor() *Extractor {
	return NewExtractor(config.AnalysisConfig{
		SmoothingWindow:     5,
		VisibilityThreshold: 0.5,
	})
}

// basePose is a symmetric standing figure in normalized image coordinates
// (y grows downward). Arms hang straight, hips are level, and the ankle
// midpoint sits directly below the hip midpoint.
func basePose() []models.Landmark {
	lm := make([]models.Landmark, models.NumLandmarks)
	for i := range lm {
		lm[i] = models.Landmark{X: 0.5, Y: 0.2, Visibility: 0.9}
	}

	set := func(i int, x, y float64) {
		lm[i] = models.Landmark{X: x, Y: y, Visibility: 0.9}
	}

	set(models.Nose, 0.5, 0.1)
	set(models.LeftShoulder, 0.6, 0.3)
	set(models.RightShoulder, 0.4, 0.3)
	set(models.LeftElbow, 0.6, 0.45)
	set(models.RightElbow, 0.4, 0.45)
	set(models.LeftWrist, 0.6, 0.6)
	set(models.RightWrist, 0.4, 0.6)
	set(models.LeftHip, 0.59, 0.55)
	set(models.RightHip, 0.41, 0.55)
	set(models.LeftKnee, 0.59, 0.75)
	set(models.RightKnee, 0.41, 0.75)
	set(models.LeftAnkle, 0.59, 0.95)
	set(models.RightAnkle, 0.41, 0.95)
	set(models.LeftHeel, 0.58, 0.97)
	set(models.RightHeel, 0.42, 0.97)
	set(models.LeftFootIndex, 0.61, 0.98)
	set(models.RightFootIndex, 0.39, 0.98)

	return lm
}

// poseWithLeftElbow bends the left arm to the requested elbow angle: the
// shoulder sits directly above the elbow and the wrist ray is rotated off
// the shoulder ray by the angle.
func poseWithLeftElbow(deg float64) []models.Landmark {
	lm := basePose()
	elbow := lm[models.LeftElbow]
	rad := (deg - 90) * math.Pi / 180

	lm[models.LeftShoulder] = models.Landmark{X: elbow.X, Y: elbow.Y - 0.15, Visibility: 0.9}
	lm[models.LeftWrist] = models.Landmark{
		X:          elbow.X + 0.15*math.Cos(rad),
		Y:          elbow.Y + 0.15*math.Sin(rad),
		Visibility: 0.9,
	}
	return lm
}

func TestExtractRejectsShortFrames(t *testing.T) {
	e := testExtractor()

	assert.Nil(t, e.Extract(nil, 0, 0, 0, nil))
	assert.Nil(t, e.Extract(basePose()[:32], 0, 0, 0, nil))
}

func TestExtractSymmetricPose(t *testing.T) {
	e := testExtractor()

	f := e.Extract(basePose(), 1234, 7, 2, nil)
	require.NotNil(t, f)

	assert.Equal(t, int64(1234), f.Timestamp)
	assert.Equal(t, 7, f.FrameNumber)
	assert.Equal(t, 2, f.SecondNumber)

	// Straight arms and legs.
	assert.InDelta(t, 180, f.Angles["left_elbow"], 1e-6)
	assert.InDelta(t, 180, f.Angles["right_elbow"], 1e-6)
	assert.InDelta(t, 180, f.Angles["left_knee"], 1e-6)
	assert.InDelta(t, 0, f.Angles["torso_vertical"], 1e-6)

	// A mirrored pose scores perfect symmetry on every pair.
	for _, key := range []string{"elbow", "knee", "shoulder", "hip", "overall"} {
		assert.InDelta(t, 100, f.Symmetry[key], 1e-6, key)
	}

	// Shoulder width 0.20 vs hip width 0.18.
	assert.InDelta(t, 90, f.TorsoStability, 1e-6)

	// Hip midpoint directly over the ankle midpoint, no depth data.
	assert.InDelta(t, 100, f.Balance["lateral"], 1e-6)
	assert.InDelta(t, 100, f.Balance["anteroposterior"], 1e-6)
	assert.InDelta(t, 100, f.Balance["overall"], 1e-6)

	assert.InDelta(t, 0.20, f.Distances["shoulder_width"], 1e-6)
	assert.InDelta(t, 0.18, f.Distances["hip_width"], 1e-6)
	assert.InDelta(t, 0.18, f.Distances["stance_width"], 1e-6)
	assert.InDelta(t, 0.25, f.Distances["torso_length"], 1e-6)

	// Without history there is no temporal context.
	assert.Nil(t, f.MotionQuality)

	assert.Len(t, f.VisibleLandmarks, models.NumLandmarks)
	assert.Contains(t, f.VisibleLandmarks, "left_shoulder")
	assert.Len(t, f.RawLandmarks, models.NumLandmarks)
}

func TestExtractZeroShoulderWidthIsNeutral(t *testing.T) {
	e := testExtractor()

	lm := basePose()
	lm[models.RightShoulder] = lm[models.LeftShoulder]

	f := e.Extract(lm, 0, 0, 0, nil)
	require.NotNil(t, f)

	assert.Equal(t, 100.0, f.TorsoStability)
	assert.Equal(t, 100.0, f.Balance["lateral"])
	assert.Equal(t, 100.0, f.Balance["anteroposterior"])
	assert.Equal(t, 100.0, f.Balance["overall"])
}

func TestExtractFiltersByVisibility(t *testing.T) {
	e := testExtractor()

	lm := basePose()
	lm[models.Nose].Visibility = 0.2
	lm[models.LeftWrist].Visibility = 0.1

	f := e.Extract(lm, 0, 0, 0, nil)
	require.NotNil(t, f)

	assert.NotContains(t, f.VisibleLandmarks, "nose")
	assert.NotContains(t, f.VisibleLandmarks, "left_wrist")
	assert.Len(t, f.VisibleLandmarks, models.NumLandmarks-2)
	assert.Equal(t, models.NumLandmarks-2, f.PointStatistics.VisibleCount)
}

func TestExtractPointStatistics(t *testing.T) {
	e := testExtractor()

	f := e.Extract(basePose(), 0, 0, 0, nil)
	require.NotNil(t, f)

	stats := f.PointStatistics
	assert.Equal(t, models.NumLandmarks, stats.VisibleCount)
	assert.InDelta(t, 0.9, stats.MeanVisibility, 1e-9)

	assert.InDelta(t, 0.39, stats.BoundingBox.MinX, 1e-9)
	assert.InDelta(t, 0.61, stats.BoundingBox.MaxX, 1e-9)
	assert.InDelta(t, 0.10, stats.BoundingBox.MinY, 1e-9)
	assert.InDelta(t, 0.98, stats.BoundingBox.MaxY, 1e-9)
	assert.InDelta(t, 0.22, stats.BoundingBox.Width, 1e-9)
	assert.InDelta(t, 0.88, stats.BoundingBox.Height, 1e-9)

	assert.Greater(t, stats.VarianceX, 0.0)
	assert.Greater(t, stats.VarianceY, 0.0)
	assert.InDelta(t, stats.MeanX, stats.Centroid.X, 1e-12)
	assert.InDelta(t, stats.MeanY, stats.Centroid.Y, 1e-12)
}

func TestMotionQualityRequiresFullWindow(t *testing.T) {
	e := testExtractor()
	h := NewHistory(50)

	for i := 0; i < 5; i++ {
		f := e.Extract(basePose(), int64(i), i, 0, h)
		require.NotNil(t, f)
		assert.Nil(t, f.MotionQuality, "frame %d has too little history", i)
		h.Append(f)
	}

	f := e.Extract(basePose(), 5, 5, 0, h)
	require.NotNil(t, f)
	assert.NotNil(t, f.MotionQuality)
}

func TestMotionQualitySmoothness(t *testing.T) {
	e := testExtractor()
	h := NewHistory(50)

	// Left elbow sweeps in even 10-degree steps; the window sees successive
	// differences of exactly 10.
	var last *models.FrameFeatures
	for i, deg := range []float64{90, 100, 110, 120, 130, 140} {
		f := e.Extract(poseWithLeftElbow(deg), int64(i), i, 0, h)
		require.NotNil(t, f)
		assert.InDelta(t, deg, f.Angles["left_elbow"], 1e-6)
		h.Append(f)
		last = f
	}

	require.NotNil(t, last.MotionQuality)
	assert.InDelta(t, 80, last.MotionQuality.Smoothness, 1e-6)

	// Hips never move, so stability stays perfect.
	assert.InDelta(t, 100, last.MotionQuality.Stability, 1e-6)

	assert.GreaterOrEqual(t, last.MotionQuality.Consistency, 0.0)
	assert.LessOrEqual(t, last.MotionQuality.Consistency, 100.0)
}

func TestMotionQualityStaticPoseIsPerfect(t *testing.T) {
	e := testExtractor()
	h := NewHistory(50)

	var last *models.FrameFeatures
	for i := 0; i < 6; i++ {
		last = e.Extract(basePose(), int64(i), i, 0, h)
		require.NotNil(t, last)
		h.Append(last)
	}

	require.NotNil(t, last.MotionQuality)
	assert.InDelta(t, 100, last.MotionQuality.Smoothness, 1e-6)
	assert.InDelta(t, 100, last.MotionQuality.Consistency, 1e-6)
	assert.InDelta(t, 100, last.MotionQuality.Stability, 1e-6)
}
