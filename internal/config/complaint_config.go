package config

import "time"

const (
	// Storage
	DefaultStorageKey = "grievance_complaints"
	// CommitAttempts bounds the re-read and retry loop when another process
	// writes the collection between our read and our write.
	CommitAttempts = 5

	// Sync
	DefaultRemoteDelay   = 1500 * time.Millisecond
	DefaultProbeInterval = 10 * time.Second
	ProbeTimeout         = 3 * time.Second

	// Dashboard
	RecentActivityCount = 3

	// Rating
	MinRating = 1
	MaxRating = 5

	// Seed data is dated relative to the clock at first load.
	SeedDay = 24 * time.Hour
)

// PriorityWeights ranks priorities for the responder queue.
var PriorityWeights = map[string]int{
	"low":    5,
	"medium": 50,
	"high":   250,
}
