// Package session owns analysis session state: start/stop/reset, frame
// ingestion, second-bucket aggregation, and report assembly.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/analysis"
	"github.com/san-kum/pose-analyzer/server/config"
	"github.com/san-kum/pose-analyzer/server/models"
)

// Controller is one independent analysis session. All state lives on the
// instance; a Manager owns many controllers side by side. A mutex serializes
// the three ways in: frame ingestion, the duration poller, and read queries.
type Controller struct {
	mu        sync.Mutex
	id        string
	logger    *zap.Logger
	cfg       config.AnalysisConfig
	extractor *analysis.Extractor
	history   *analysis.History
	insights  *analysis.InsightsGenerator
	clock     func() time.Time

	running          bool
	startTime        time.Time
	frameCount       int
	secondCount      int
	currentSecond    []*models.FrameFeatures
	aggregates       map[int]*models.SecondAggregate
	latest           *models.FrameFeatures
	selectedDuration int
	report           *models.SessionReport
	lastActivity     time.Time
	done             chan struct{}

	// Callbacks fire outside the controller lock. They must be set before
	// Start and must not be changed while the session runs.
	onAggregate func(*models.SecondAggregate)
	onComplete  func(*models.SessionReport)
}

func NewController(id string, cfg config.AnalysisConfig, logger *zap.Logger) *Controller {
	return &Controller{
		id:           id,
		logger:       logger,
		cfg:          cfg,
		extractor:    analysis.NewExtractor(cfg),
		history:      analysis.NewHistory(cfg.HistoryCapacity),
		insights:     analysis.NewInsightsGenerator(cfg.InsightsMinSamples),
		clock:        time.Now,
		aggregates:   make(map[int]*models.SecondAggregate),
		lastActivity: time.Now(),
	}
}

// SetCallbacks registers the second-rollover and completion hooks.
func (c *Controller) SetCallbacks(onAggregate func(*models.SecondAggregate), onComplete func(*models.SessionReport)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAggregate = onAggregate
	c.onComplete = onComplete
}

// Start transitions Idle -> Running, clearing all prior state. Starting an
// already-running session is a no-op. A non-positive duration falls back to
// the configured default.
func (c *Controller) Start(durationSeconds int) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}

	c.resetLocked()
	if durationSeconds <= 0 {
		durationSeconds = c.cfg.DefaultDurationSeconds
	}
	c.selectedDuration = durationSeconds
	c.running = true
	c.startTime = c.clock()
	c.lastActivity = c.startTime
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.watchDuration(done)

	c.logger.Info("Session started",
		zap.String("session_id", c.id),
		zap.Int("duration_seconds", durationSeconds))
}

// ProcessFrame runs one pose observation through the pipeline: bucket
// rollover check, feature extraction, history append. It returns nil when
// the session is idle (late frames are dropped) or when the frame carries
// too few landmarks; neither is an error.
func (c *Controller) ProcessFrame(landmarks []models.Landmark, timestamp int64) *models.FrameFeatures {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	now := c.clock()
	c.lastActivity = now
	if timestamp == 0 {
		timestamp = now.UnixMilli()
	}

	var rolled *models.SecondAggregate
	elapsed := int(now.Sub(c.startTime) / time.Second)
	if elapsed > c.secondCount {
		rolled = c.flushLocked()
		c.secondCount = elapsed
	}

	features := c.extractor.Extract(landmarks, timestamp, c.frameCount, elapsed, c.history)
	if features != nil {
		c.frameCount++
		c.history.Append(features)
		c.currentSecond = append(c.currentSecond, features)
		c.latest = features
	}
	onAggregate := c.onAggregate
	c.mu.Unlock()

	if rolled != nil && onAggregate != nil {
		onAggregate(rolled)
	}
	return features
}

// Stop flushes the remainder bucket, assembles the report, and transitions
// to Idle. Stopping an idle session is a no-op that returns the last report,
// if any.
func (c *Controller) Stop() *models.SessionReport {
	c.mu.Lock()
	if !c.running {
		report := c.report
		c.mu.Unlock()
		return report
	}

	c.running = false
	close(c.done)
	c.flushLocked()

	actual := c.clock().Sub(c.startTime).Seconds()
	report := c.assembleReportLocked(actual)
	c.report = report
	frames := c.frameCount
	c.mu.Unlock()

	c.logger.Info("Session stopped",
		zap.String("session_id", c.id),
		zap.Float64("actual_duration", actual),
		zap.Int("frames", frames))
	return report
}

// Reset returns the controller to Idle and clears history, buckets, and
// counters.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.running {
		c.running = false
		close(c.done)
	}
	c.resetLocked()
	c.mu.Unlock()

	c.logger.Info("Session reset", zap.String("session_id", c.id))
}

// resetLocked clears all per-session state. Callers hold the lock.
func (c *Controller) resetLocked() {
	c.history.Clear()
	c.aggregates = make(map[int]*models.SecondAggregate)
	c.currentSecond = nil
	c.frameCount = 0
	c.secondCount = 0
	c.startTime = time.Time{}
	c.latest = nil
	c.report = nil
	c.selectedDuration = 0
}

// flushLocked turns the current second's buffer into an aggregate keyed by
// the bucket index being accumulated. Empty buckets produce nothing.
func (c *Controller) flushLocked() *models.SecondAggregate {
	if len(c.currentSecond) == 0 {
		return nil
	}
	agg := buildAggregate(c.secondCount, c.currentSecond)
	c.aggregates[c.secondCount] = agg
	c.currentSecond = nil
	return agg
}

// watchDuration is the coarse secondary completion check. The predicate
// itself is wall-clock based; this poll only guards against the driver never
// asking.
func (c *Controller) watchDuration(done chan struct{}) {
	ticker := time.NewTicker(c.cfg.CompletionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !c.IsDurationComplete() {
				continue
			}
			report := c.Stop()
			c.mu.Lock()
			onComplete := c.onComplete
			c.mu.Unlock()
			if report != nil && onComplete != nil {
				onComplete(report)
			}
			return
		}
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ElapsedSeconds is the whole seconds since the session started, 0 when idle.
func (c *Controller) ElapsedSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	return int(c.clock().Sub(c.startTime) / time.Second)
}

// IsDurationComplete reports whether the configured duration has elapsed.
// It is computed from the clock, never from frame counts, because frame
// arrival rate is not guaranteed.
func (c *Controller) IsDurationComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.selectedDuration <= 0 {
		return false
	}
	return int(c.clock().Sub(c.startTime)/time.Second) >= c.selectedDuration
}

func (c *Controller) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCount
}

// LatestFeatures returns the most recent frame features, or nil before the
// first valid frame.
func (c *Controller) LatestFeatures() *models.FrameFeatures {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// HistorySnapshot returns the rolling history in arrival order.
func (c *Controller) HistorySnapshot() []*models.FrameFeatures {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Snapshot()
}

// Aggregates returns a copy of the completed-bucket registry.
func (c *Controller) Aggregates() map[int]*models.SecondAggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]*models.SecondAggregate, len(c.aggregates))
	for k, v := range c.aggregates {
		out[k] = v
	}
	return out
}

// Insights generates qualitative assessments from the current history.
func (c *Controller) Insights() *models.Insights {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insights.Generate(c.history)
}

// Report returns the report assembled at the last stop, or nil if the
// session has never completed.
func (c *Controller) Report() *models.SessionReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// LastActivity is used by the manager janitor to expire abandoned sessions.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}
