package analysis_test

import (
	"testing"
	"time"

	"incluverse/backend/internal/analysis"
	"incluverse/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func fixture() []models.Complaint {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.Complaint{
		{ID: 1, CreatedAt: base, Status: models.StatusResolved, Synced: true, Priority: models.PriorityHigh, Rating: intPtr(5)},
		{ID: 2, CreatedAt: base.Add(3 * time.Hour), Status: models.StatusInProgress, Synced: true, Priority: models.PriorityMedium},
		{ID: 3, CreatedAt: base.Add(1 * time.Hour), Status: models.StatusOffline, Priority: models.PriorityLow},
		{ID: 4, CreatedAt: base.Add(2 * time.Hour), Status: models.StatusResolved, Synced: true, Priority: models.PriorityHigh, Rating: intPtr(2)},
	}
}

func TestSummarize(t *testing.T) {
	s := analysis.Summarize(fixture())

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.ByStatus[models.StatusResolved])
	assert.Equal(t, 1, s.ByStatus[models.StatusInProgress])
	assert.Equal(t, 1, s.ByStatus[models.StatusOffline])
	assert.Equal(t, 0, s.ByStatus[models.StatusSubmitted])
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 2, s.Rated)
	require.NotNil(t, s.AverageRating)
	assert.InDelta(t, 3.5, *s.AverageRating, 1e-9)
}

func TestSummarize_NoRatings(t *testing.T) {
	s := analysis.Summarize([]models.Complaint{{ID: 1, Status: models.StatusSubmitted, Synced: true}})
	assert.Nil(t, s.AverageRating, "average should be N/A without ratings")
}

func TestRecent(t *testing.T) {
	in := fixture()
	got := analysis.Recent(in, 3)

	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 4, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, int64(1), in[0].ID, "input must not be reordered")
}

func TestByUrgency(t *testing.T) {
	got := analysis.ByUrgency(fixture())

	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []int64{1, 4, 2, 3}, ids)
}

func TestGetWeight(t *testing.T) {
	assert.Greater(t, analysis.GetWeight(models.PriorityHigh), analysis.GetWeight(models.PriorityMedium))
	assert.Greater(t, analysis.GetWeight(models.PriorityMedium), analysis.GetWeight(models.PriorityLow))
	assert.Equal(t, 0, analysis.GetWeight("urgent"))
}
