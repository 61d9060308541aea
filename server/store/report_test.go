package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pose-analyzer/server/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport() *models.SessionReport {
	return &models.SessionReport{
		SessionID: "session-1",
		Duration: models.ReportDuration{
			SelectedDuration: 30,
			ActualDuration:   30.4,
			Timestamp:        "2026-08-26T10:00:00Z",
		},
		PoseHistory: []*models.FrameFeatures{
			{FrameNumber: 0, TorsoStability: 88},
			{FrameNumber: 1, TorsoStability: 90},
		},
		Insights: &models.Insights{Sufficient: false, SampleCount: 2},
	}
}

func TestReportSaveAndGet(t *testing.T) {
	repo := newTestStore(t).Reports()

	id, err := repo.Save(sampleReport(), "203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := repo.GetByID(id)
	require.NoError(t, err)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "session-1", rec.SessionID)
	assert.Equal(t, "203.0.113.7", rec.ClientID)
	assert.Equal(t, 30, rec.SelectedDuration)
	assert.InDelta(t, 30.4, rec.ActualDuration, 1e-9)
	assert.Equal(t, 2, rec.FrameCount)
	assert.False(t, rec.CreatedAt.IsZero())

	var stored models.SessionReport
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.Equal(t, "session-1", stored.SessionID)
	assert.Len(t, stored.PoseHistory, 2)
}

func TestReportGetUnknownID(t *testing.T) {
	repo := newTestStore(t).Reports()

	_, err := repo.GetByID("no-such-report")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportList(t *testing.T) {
	repo := newTestStore(t).Reports()

	for i := 0; i < 3; i++ {
		_, err := repo.Save(sampleReport(), "client")
		require.NoError(t, err)
	}

	records, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Listing returns metadata only.
	for _, rec := range records {
		assert.Empty(t, rec.Payload)
		assert.Equal(t, "session-1", rec.SessionID)
	}

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReportDelete(t *testing.T) {
	repo := newTestStore(t).Reports()

	id, err := repo.Save(sampleReport(), "client")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(id))

	_, err = repo.GetByID(id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(id), ErrNotFound)
}
