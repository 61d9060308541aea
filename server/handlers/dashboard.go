package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/cache"
	"github.com/san-kum/pose-analyzer/server/models"
	"github.com/san-kum/pose-analyzer/server/session"
	"github.com/san-kum/pose-analyzer/server/store"
)

// DashboardHandler is the REST surface behind the dashboard: session
// lifecycle, per-frame ingestion for clients without a WebSocket, metric
// queries, and stored-report access.
type DashboardHandler struct {
	manager *session.Manager
	sink    *ReportSink
	reports *store.ReportRepository
	cache   cache.Cache
	logger  *zap.Logger

	statsMu sync.Mutex
	stats   SystemStats
}

type SystemStats struct {
	TotalFrames    int64     `json:"total_frames"`
	ProcessedOK    int64     `json:"processed_ok"`
	Dropped        int64     `json:"dropped"`
	AvgProcessTime float64   `json:"avg_process_time_ms"`
	LastUpdated    time.Time `json:"last_updated"`
}

type startRequest struct {
	Duration int `json:"duration"`
}

type frameRequest struct {
	Landmarks []models.Landmark `json:"landmarks"`
	Timestamp int64             `json:"timestamp"`
}

func NewDashboardHandler(manager *session.Manager, sink *ReportSink, reports *store.ReportRepository, cache cache.Cache, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		manager: manager,
		sink:    sink,
		reports: reports,
		cache:   cache,
		logger:  logger,
		stats:   SystemStats{LastUpdated: time.Now()},
	}
}

// CreateSession registers a new idle session and returns its ID.
func (h *DashboardHandler) CreateSession(c *gin.Context) {
	ctrl := h.manager.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": ctrl.ID()})
}

// StartSession begins analysis for a session, optionally with an explicit
// duration in seconds.
func (h *DashboardHandler) StartSession(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var request startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	ctrl.Start(request.Duration)
	c.JSON(http.StatusOK, gin.H{
		"session_id": ctrl.ID(),
		"running":    true,
	})
}

// ProcessFrame ingests one landmark frame over REST. Nil landmarks are the
// detector's "no pose" signal and acknowledged as such.
func (h *DashboardHandler) ProcessFrame(c *gin.Context) {
	startTime := time.Now()

	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var request frameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.countFrame()

	if request.Landmarks == nil {
		h.countDropped()
		c.JSON(http.StatusOK, gin.H{"no_pose": true})
		return
	}

	features := ctrl.ProcessFrame(request.Landmarks, request.Timestamp)
	if features == nil {
		h.countDropped()
		c.JSON(http.StatusOK, gin.H{"dropped": true, "running": ctrl.Running()})
		return
	}

	h.countProcessed(time.Since(startTime))
	c.JSON(http.StatusOK, gin.H{"features": features})
}

// StopSession ends analysis, persists the report, and returns it. Stopping
// an idle session is a no-op that returns the last report.
func (h *DashboardHandler) StopSession(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	wasRunning := ctrl.Running()
	report := ctrl.Stop()

	var reportID string
	if wasRunning && report != nil {
		reportID = h.sink.Persist(c.Request.Context(), report, c.ClientIP())
	}

	c.JSON(http.StatusOK, gin.H{
		"report":    report,
		"report_id": reportID,
	})
}

// ResetSession returns a session to the idle state and clears its buffers.
func (h *DashboardHandler) ResetSession(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	ctrl.Reset()
	c.JSON(http.StatusOK, gin.H{"session_id": ctrl.ID(), "running": false})
}

// GetMetrics returns the latest frame features for live display.
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running":         ctrl.Running(),
		"elapsed_seconds": ctrl.ElapsedSeconds(),
		"frame_count":     ctrl.FrameCount(),
		"features":        ctrl.LatestFeatures(),
	})
}

// GetHistory returns the rolling history snapshot the charts render from.
func (h *DashboardHandler) GetHistory(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	history := ctrl.HistorySnapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(history),
		"frames": history,
	})
}

// GetAggregates returns the completed per-second bucket registry.
func (h *DashboardHandler) GetAggregates(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"aggregates": ctrl.Aggregates()})
}

// GetInsights returns the qualitative assessment of recent movement.
func (h *DashboardHandler) GetInsights(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ctrl.Insights())
}

// GetSessionReport returns the report from the session's last stop.
func (h *DashboardHandler) GetSessionReport(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	report := ctrl.Report()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session has not completed yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListReports returns stored report metadata, most recent first.
func (h *DashboardHandler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.reports.List(limit)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": records})
}

// GetStoredReport returns one stored report, served from cache when warm.
// Both paths respond with the decoded session report so the shape does not
// depend on cache state; a store read warms the cache for the next fetch.
func (h *DashboardHandler) GetStoredReport(c *gin.Context) {
	id := c.Param("id")

	if cached, err := h.cache.Get(c.Request.Context(), reportCacheKey(id)); err == nil {
		c.JSON(http.StatusOK, gin.H{"report": cached, "cached": true})
		return
	}

	record, err := h.reports.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.Error("Failed to load report", zap.Error(err), zap.String("report_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	var report models.SessionReport
	if err := json.Unmarshal(record.Payload, &report); err != nil {
		h.logger.Error("Failed to decode stored report", zap.Error(err), zap.String("report_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	if err := h.cache.Set(c.Request.Context(), reportCacheKey(id), &report); err != nil {
		h.logger.Warn("Failed to cache report", zap.Error(err), zap.String("report_id", id))
	}

	c.JSON(http.StatusOK, gin.H{"report": &report, "cached": false})
}

// DeleteStoredReport removes a stored report and its cache entry.
func (h *DashboardHandler) DeleteStoredReport(c *gin.Context) {
	id := c.Param("id")

	if err := h.reports.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.Error("Failed to delete report", zap.Error(err), zap.String("report_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}

	_ = h.cache.Delete(c.Request.Context(), reportCacheKey(id))
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetStats reports ingestion counters and collaborator health.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	h.statsMu.Lock()
	stats := h.stats
	stats.LastUpdated = time.Now()
	h.statsMu.Unlock()

	var successRate float64
	if stats.TotalFrames > 0 {
		successRate = float64(stats.ProcessedOK) / float64(stats.TotalFrames) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"system":          stats,
		"active_sessions": h.manager.Count(),
		"cache":           h.cache.Stats(),
		"metrics": gin.H{
			"success_rate": successRate,
		},
	})
}

// session resolves the :id parameter, writing the 404 response itself when
// the session is unknown.
func (h *DashboardHandler) session(c *gin.Context) (*session.Controller, bool) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return ctrl, true
}

func (h *DashboardHandler) countFrame() {
	h.statsMu.Lock()
	h.stats.TotalFrames++
	h.statsMu.Unlock()
}

func (h *DashboardHandler) countDropped() {
	h.statsMu.Lock()
	h.stats.Dropped++
	h.statsMu.Unlock()
}

func (h *DashboardHandler) countProcessed(duration time.Duration) {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	h.stats.ProcessedOK++

	currentTime := float64(duration.Microseconds()) / 1000.0
	if h.stats.AvgProcessTime == 0 {
		h.stats.AvgProcessTime = currentTime
	} else {
		alpha := 0.1
		h.stats.AvgProcessTime = alpha*currentTime + (1-alpha)*h.stats.AvgProcessTime
	}
}
