package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/pose-analyzer/server/models"
)

func pt(x, y float64) models.Landmark {
	return models.Landmark{X: x, Y: y, Visibility: 1}
}

func TestAngleRightAngle(t *testing.T) {
	got := Angle(pt(0, 1), pt(0, 0), pt(1, 0))
	assert.InDelta(t, 90, got, 1e-9)
}

func TestAngleStraightLine(t *testing.T) {
	got := Angle(pt(-1, 0), pt(0, 0), pt(1, 0))
	assert.InDelta(t, 180, got, 1e-9)
}

func TestAngleFoldsReflexAngles(t *testing.T) {
	// Rays at +170 and -170 degrees enclose 20 degrees, not 340.
	a := pt(math.Cos(170*math.Pi/180), math.Sin(170*math.Pi/180))
	c := pt(math.Cos(-170*math.Pi/180), math.Sin(-170*math.Pi/180))
	got := Angle(a, pt(0, 0), c)
	assert.InDelta(t, 20, got, 1e-9)
}

func TestAngleDegenerateVertex(t *testing.T) {
	assert.Zero(t, Angle(pt(0, 0), pt(0, 0), pt(1, 0)))
	assert.Zero(t, Angle(pt(1, 0), pt(0, 0), pt(0, 0)))
}

func TestAngle3D(t *testing.T) {
	a := models.Landmark{X: 1}
	b := models.Landmark{}
	c := models.Landmark{Z: 1}
	assert.InDelta(t, 90, Angle3D(a, b, c), 1e-9)

	assert.Zero(t, Angle3D(b, b, c))
}

func TestDistances(t *testing.T) {
	a := pt(0, 0)
	b := pt(3, 4)
	assert.InDelta(t, 5, Distance2D(a, b), 1e-9)

	c := models.Landmark{X: 3, Y: 4, Z: 12}
	assert.InDelta(t, 13, Distance3D(a, c), 1e-9)
	assert.InDelta(t, 5, Distance3D(a, b), 1e-9, "no depth degrades to 2D")
}

func TestVelocity(t *testing.T) {
	assert.Zero(t, Velocity(pt(0, 0), pt(3, 4), 0))
	assert.Zero(t, Velocity(pt(0, 0), pt(3, 4), -1))
	assert.InDelta(t, 2.5, Velocity(pt(0, 0), pt(3, 4), 2), 1e-9)
}

func TestMidpoint(t *testing.T) {
	a := models.Landmark{X: 0, Y: 0, Z: 1, Visibility: 0.9}
	b := models.Landmark{X: 2, Y: 4, Z: 3, Visibility: 0.4}

	mid := Midpoint(a, b)
	assert.InDelta(t, 1, mid.X, 1e-9)
	assert.InDelta(t, 2, mid.Y, 1e-9)
	assert.InDelta(t, 2, mid.Z, 1e-9)
	assert.InDelta(t, 0.4, mid.Visibility, 1e-9, "midpoint carries the lower visibility")
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(math.NaN()))
	assert.Equal(t, 0.0, clampScore(-5))
	assert.Equal(t, 100.0, clampScore(150))
	assert.Equal(t, 42.0, clampScore(42))
}
