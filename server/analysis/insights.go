package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pose-analyzer/server/models"
)

// Insight policy constants. The cut-points are fixed for behavioral
// compatibility with the dashboard texts; only the sample minimum is
// configurable at construction.
const (
	insightsWindow = 10

	torsoExcellentThreshold = 80.0
	torsoGoodThreshold      = 60.0
	symmetryGoodThreshold   = 85.0
	symmetryModThreshold    = 70.0

	recommendBalanceBelow  = 70.0
	recommendSymmetryBelow = 75.0
	recommendTorsoBelow    = 70.0
)

// InsightsGenerator maps recent history onto qualitative posture and
// movement assessments.
type InsightsGenerator struct {
	minSamples int
}

func NewInsightsGenerator(minSamples int) *InsightsGenerator {
	if minSamples <= 0 {
		minSamples = insightsWindow
	}
	return &InsightsGenerator{minSamples: minSamples}
}

// Generate produces insights from the rolling history. With fewer frames
// than the minimum it returns an explicit insufficient-data result rather
// than an error; ingestion is never blocked by this.
func (g *InsightsGenerator) Generate(history *History) *models.Insights {
	if history == nil || history.Len() < g.minSamples {
		count := 0
		if history != nil {
			count = history.Len()
		}
		return &models.Insights{
			Sufficient:  false,
			Message:     "Not enough movement data collected yet - keep going",
			SampleCount: count,
		}
	}

	recent := history.Recent(insightsWindow)
	symmetry := make([]float64, 0, len(recent))
	balance := make([]float64, 0, len(recent))
	torso := make([]float64, 0, len(recent))
	for _, f := range recent {
		symmetry = append(symmetry, f.Symmetry["overall"])
		balance = append(balance, f.Balance["overall"])
		torso = append(torso, f.TorsoStability)
	}

	avgSymmetry := stat.Mean(symmetry, nil)
	avgBalance := stat.Mean(balance, nil)
	avgTorso := stat.Mean(torso, nil)

	return &models.Insights{
		Sufficient:            true,
		Posture:               postureAssessment(avgTorso),
		Symmetry:              symmetryAssessment(avgSymmetry),
		Recommendations:       recommendations(avgBalance, avgSymmetry, avgTorso),
		AverageSymmetry:       avgSymmetry,
		AverageBalance:        avgBalance,
		AverageTorsoStability: avgTorso,
		SampleCount:           len(recent),
	}
}

func postureAssessment(torso float64) string {
	switch {
	case torso > torsoExcellentThreshold:
		return "Excellent torso stability - your posture is well controlled"
	case torso > torsoGoodThreshold:
		return "Good stability with room for improvement - focus on keeping the torso steady"
	default:
		return "Torso stability needs attention - movements show significant sway"
	}
}

func symmetryAssessment(symmetry float64) string {
	switch {
	case symmetry > symmetryGoodThreshold:
		return "Movement symmetry is good - both sides are well balanced"
	case symmetry > symmetryModThreshold:
		return "Moderate asymmetry detected between left and right sides"
	default:
		return "Significant asymmetry detected - one side differs noticeably from the other"
	}
}

func recommendations(balance, symmetry, torso float64) []string {
	var recs []string
	if balance < recommendBalanceBelow {
		recs = append(recs, "Practice single-leg stands to improve balance control")
	}
	if symmetry < recommendSymmetryBelow {
		recs = append(recs, "Add unilateral exercises to even out left/right differences")
	}
	if torso < recommendTorsoBelow {
		recs = append(recs, "Strengthen your core to reduce torso sway during movement")
	}
	if len(recs) == 0 {
		recs = append(recs, "Great form! Keep up the consistent movement quality")
	}
	return recs
}
