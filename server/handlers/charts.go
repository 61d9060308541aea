package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

// SessionChart renders the per-second score series as a standalone HTML
// line chart. It is the server-side view of the rolling dashboard chart,
// useful for eyeballing a session without the full front end.
func (h *DashboardHandler) SessionChart(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	aggregates := ctrl.Aggregates()
	if len(aggregates) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No completed seconds to chart yet"})
		return
	}

	seconds := make([]int, 0, len(aggregates))
	for second := range aggregates {
		seconds = append(seconds, second)
	}
	sort.Ints(seconds)

	symmetry := make([]opts.LineData, 0, len(seconds))
	balance := make([]opts.LineData, 0, len(seconds))
	torso := make([]opts.LineData, 0, len(seconds))
	for _, second := range seconds {
		agg := aggregates[second]
		symmetry = append(symmetry, opts.LineData{Value: agg.AverageSymmetry["overall"]})
		balance = append(balance, opts.LineData{Value: agg.AverageBalance["overall"]})
		torso = append(torso, opts.LineData{Value: agg.TorsoStability})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Pose Analyzer Session",
			Width:     "1000px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Per-second movement scores",
			Subtitle: fmt.Sprintf("session=%s seconds=%d", ctrl.ID(), len(seconds)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "second"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Max: 100}),
	)

	line.SetXAxis(seconds).
		AddSeries("symmetry", symmetry).
		AddSeries("balance", balance).
		AddSeries("torso stability", torso).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		h.logger.Error("Failed to render session chart", zap.Error(err))
	}
}
