package session

import (
	"time"

	"github.com/san-kum/pose-analyzer/server/models"
)

// buildAggregate collapses one completed second of frames into a single
// record: arithmetic means per angle/symmetry/balance key, a last-write-wins
// union of the visible-landmark maps, and the last frame's statistical
// snapshot. Point-cloud statistics and torso stability are copied from the
// last frame rather than averaged; that is a deliberate choice, averaging
// them adds cost without a meaningful interpretation.
func buildAggregate(second int, frames []*models.FrameFeatures) *models.SecondAggregate {
	last := frames[len(frames)-1]

	union := make(map[string]models.Landmark)
	angleMaps := make([]map[string]float64, 0, len(frames))
	symmetryMaps := make([]map[string]float64, 0, len(frames))
	balanceMaps := make([]map[string]float64, 0, len(frames))
	for _, f := range frames {
		for name, lm := range f.VisibleLandmarks {
			union[name] = lm
		}
		angleMaps = append(angleMaps, f.Angles)
		symmetryMaps = append(symmetryMaps, f.Symmetry)
		balanceMaps = append(balanceMaps, f.Balance)
	}

	return &models.SecondAggregate{
		SecondNumber:          second,
		FrameCount:            len(frames),
		TimestampStart:        frames[0].Timestamp,
		TimestampEnd:          last.Timestamp,
		UnionVisibleLandmarks: union,
		AverageAngles:         averageByKey(angleMaps),
		AverageSymmetry:       averageByKey(symmetryMaps),
		AverageBalance:        averageByKey(balanceMaps),
		LastFrameStatistics:   last.PointStatistics,
		TorsoStability:        last.TorsoStability,
	}
}

// averageByKey computes the arithmetic mean per key across a slice of maps.
// A key only present in some maps is averaged over the maps that carry it.
func averageByKey(maps []map[string]float64) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range maps {
		for k, v := range m {
			sums[k] += v
			counts[k]++
		}
	}

	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

// assembleReportLocked packages the completed session into the exportable
// report snapshot. Callers hold the controller lock and have already flushed
// the remainder bucket.
func (c *Controller) assembleReportLocked(actualDuration float64) *models.SessionReport {
	aggregates := make(map[int]*models.SecondAggregate, len(c.aggregates))
	for k, v := range c.aggregates {
		aggregates[k] = v
	}

	return &models.SessionReport{
		SessionID: c.id,
		Metrics:   c.latest,
		Duration: models.ReportDuration{
			SelectedDuration: c.selectedDuration,
			ActualDuration:   actualDuration,
			Timestamp:        c.clock().UTC().Format(time.RFC3339),
		},
		PoseHistory:         c.history.Snapshot(),
		PerSecondAggregates: aggregates,
		Insights:            c.insights.Generate(c.history),
	}
}
