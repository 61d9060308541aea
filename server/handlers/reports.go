package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/cache"
	"github.com/san-kum/pose-analyzer/server/models"
	"github.com/san-kum/pose-analyzer/server/store"
)

// ReportSink hands completed session reports to the persistence
// collaborators: the SQLite store for durability and the cache for fast
// re-reads from the dashboard.
type ReportSink struct {
	reports *store.ReportRepository
	cache   cache.Cache
	logger  *zap.Logger
}

func NewReportSink(reports *store.ReportRepository, cache cache.Cache, logger *zap.Logger) *ReportSink {
	return &ReportSink{
		reports: reports,
		cache:   cache,
		logger:  logger,
	}
}

// Persist stores a report and returns the stored record ID. Persistence
// failures are logged, never propagated into the session pipeline: the
// report stays available in memory on the controller regardless.
func (s *ReportSink) Persist(ctx context.Context, report *models.SessionReport, clientID string) string {
	if report == nil {
		return ""
	}

	id, err := s.reports.Save(report, clientID)
	if err != nil {
		s.logger.Error("Failed to persist session report",
			zap.Error(err),
			zap.String("session_id", report.SessionID))
		return ""
	}

	if err := s.cache.Set(ctx, reportCacheKey(id), report); err != nil {
		s.logger.Warn("Failed to cache session report", zap.Error(err))
	}

	s.logger.Info("Session report persisted",
		zap.String("report_id", id),
		zap.String("session_id", report.SessionID),
		zap.Int("frames", len(report.PoseHistory)))
	return id
}

func reportCacheKey(id string) string {
	return "report:" + id
}
