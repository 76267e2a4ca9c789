package models

import "time"

// EventType names a complaint lifecycle change pushed to live subscribers.
type EventType string

const (
	EventSubmitted EventType = "complaint.submitted"
	EventSynced    EventType = "complaint.synced"
	EventResponded EventType = "complaint.responded"
	EventStatus    EventType = "complaint.status"
	EventRated     EventType = "complaint.rated"
)

// ComplaintEvent is broadcast over the websocket feed and to notifiers.
type ComplaintEvent struct {
	Type       EventType   `json:"type"`
	Complaints []Complaint `json:"complaints"`
	At         time.Time   `json:"at"`
}
