package complaint_test

import (
	"testing"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStrictTransitions(t *testing.T) {
	tests := []struct {
		from, to models.Status
		allowed  bool
	}{
		{models.StatusSubmitted, models.StatusInProgress, true},
		{models.StatusSubmitted, models.StatusResolved, true},
		{models.StatusInProgress, models.StatusResolved, true},
		{models.StatusInProgress, models.StatusSubmitted, true},
		{models.StatusResolved, models.StatusInProgress, true},
		{models.StatusResolved, models.StatusResolved, true},
		{models.StatusResolved, models.StatusOffline, false},
		{models.StatusResolved, models.StatusSubmitted, false},
		{models.StatusOffline, models.StatusSubmitted, false},
		{models.StatusOffline, models.StatusResolved, false},
		{models.StatusSubmitted, models.StatusOffline, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := complaint.PolicyStrict.CheckTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, complaint.ErrInvalidTransition)
			}
		})
	}
}

func TestPermissiveAllowsEverything(t *testing.T) {
	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			assert.NoError(t, complaint.PolicyPermissive.CheckTransition(from, to))
		}
	}
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, complaint.PolicyPermissive, complaint.ParsePolicy("permissive"))
	assert.Equal(t, complaint.PolicyStrict, complaint.ParsePolicy("strict"))
	assert.Equal(t, complaint.PolicyStrict, complaint.ParsePolicy("whatever"))
}

func TestRoundRobinCycles(t *testing.T) {
	rr := &complaint.RoundRobin{}
	var got []int
	for i := 0; i < 7; i++ {
		got = append(got, rr.Pick(5))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 0, 1}, got)
}

func TestRandomSelectorIsReproducible(t *testing.T) {
	a := complaint.NewRandomSelector(42)
	b := complaint.NewRandomSelector(42)
	for i := 0; i < 20; i++ {
		pa, pb := a.Pick(len(complaint.AutoResponses)), b.Pick(len(complaint.AutoResponses))
		assert.Equal(t, pa, pb)
		assert.GreaterOrEqual(t, pa, 0)
		assert.Less(t, pa, len(complaint.AutoResponses))
	}
}
