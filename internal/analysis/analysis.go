// Package analysis provides dashboard figures over the complaint collection.
// It includes the priority weighting used to order the responder queue.
package analysis

import (
	"cmp"
	"slices"

	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"
)

// GetWeight returns the weight for a given priority.
// It returns 0 if the priority is not recognized.
func GetWeight(priority models.Priority) int {
	return config.PriorityWeights[string(priority)]
}

// Stats summarizes the collection for the responder dashboard.
type Stats struct {
	Total    int                   `json:"total"`
	ByStatus map[models.Status]int `json:"by_status"`
	Pending  int                   `json:"pending_sync"`
	Rated    int                   `json:"rated"`
	// AverageRating is nil when no complaint has been rated yet.
	AverageRating *float64 `json:"average_rating"`
}

// Summarize computes Stats for complaints.
func Summarize(complaints []models.Complaint) Stats {
	s := Stats{
		Total:    len(complaints),
		ByStatus: make(map[models.Status]int, len(models.Statuses)),
	}
	for _, st := range models.Statuses {
		s.ByStatus[st] = 0
	}

	ratingSum := 0
	for _, c := range complaints {
		s.ByStatus[c.Status]++
		if !c.Synced {
			s.Pending++
		}
		if c.Rating != nil {
			s.Rated++
			ratingSum += *c.Rating
		}
	}
	if s.Rated > 0 {
		avg := float64(ratingSum) / float64(s.Rated)
		s.AverageRating = &avg
	}
	return s
}

// Recent returns up to n complaints ordered newest first by creation time.
func Recent(complaints []models.Complaint, n int) []models.Complaint {
	out := slices.Clone(complaints)
	slices.SortStableFunc(out, func(a, b models.Complaint) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ByUrgency orders complaints by descending priority weight, oldest first within a priority.
func ByUrgency(complaints []models.Complaint) []models.Complaint {
	out := slices.Clone(complaints)
	slices.SortStableFunc(out, func(a, b models.Complaint) int {
		if c := cmp.Compare(GetWeight(b.Priority), GetWeight(a.Priority)); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
