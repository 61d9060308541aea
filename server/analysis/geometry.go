// Package analysis implements the frame-to-metrics pipeline: geometric
// primitives, per-frame feature extraction, the rolling history buffer, and
// the insights generator.
package analysis

import (
	"math"

	"github.com/san-kum/pose-analyzer/server/models"
)

// The geometric primitives are total functions: degenerate or non-finite
// input resolves to 0 so a single bad frame never poisons downstream
// aggregation.

// Angle returns the angle in degrees at vertex b between rays b->a and b->c,
// folded into [0,180]. Joint angles use this 2D form throughout; depth is
// handled separately by Angle3D where it matters.
func Angle(a, b, c models.Landmark) float64 {
	if (a.X == b.X && a.Y == b.Y) || (c.X == b.X && c.Y == b.Y) {
		return 0
	}

	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}

	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	return deg
}

// Angle3D returns the angle at vertex b using the full 3D dot-product form.
func Angle3D(a, b, c models.Landmark) float64 {
	ux, uy, uz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	vx, vy, vz := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	un := math.Sqrt(ux*ux + uy*uy + uz*uz)
	vn := math.Sqrt(vx*vx + vy*vy + vz*vz)
	if un == 0 || vn == 0 {
		return 0
	}

	cos := (ux*vx + uy*vy + uz*vz) / (un * vn)
	cos = math.Max(-1, math.Min(1, cos))

	deg := math.Acos(cos) * 180 / math.Pi
	if math.IsNaN(deg) {
		return 0
	}
	return deg
}

// Distance2D returns the planar Euclidean distance between two landmarks.
func Distance2D(a, b models.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	d := math.Sqrt(dx*dx + dy*dy)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// Distance3D includes the depth term; landmarks without depth carry z=0, in
// which case this degrades to the 2D distance.
func Distance3D(a, b models.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	d := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// Velocity returns the planar displacement rate between two positions over
// dt seconds, or 0 when dt is not positive.
func Velocity(p1, p2 models.Landmark, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return Distance2D(p1, p2) / dt
}

// Midpoint returns the point halfway between two landmarks, carrying the
// lower of the two visibilities.
func Midpoint(a, b models.Landmark) models.Landmark {
	return models.Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: math.Min(a.Visibility, b.Visibility),
	}
}

// clampScore folds a raw metric into the [0,100] score range.
func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
