package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusSubmitted  Status = "submitted"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// StatusAll is the search filter value that disables status filtering.
const StatusAll = "all"

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOffline, StatusSubmitted, StatusInProgress, StatusResolved}

// ParseStatus converts a raw string into a Status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Priority expresses how urgently a complaint should be handled.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Language is a BCP-47 tag of the language a complaint was dictated in.
type Language string

const (
	LanguageEnglish Language = "en-US"
	LanguageHindi   Language = "hi-IN"
	LanguageKannada Language = "kn-IN"
	LanguageTamil   Language = "ta-IN"
	LanguageTelugu  Language = "te-IN"
)

// Languages maps every supported tag to its display name.
var Languages = map[Language]string{
	LanguageEnglish: "English",
	LanguageHindi:   "हिंदी (Hindi)",
	LanguageKannada: "ಕನ್ನಡ (Kannada)",
	LanguageTamil:   "தமிழ் (Tamil)",
	LanguageTelugu:  "తెలుగు (Telugu)",
}

// ParseLanguage accepts a supported tag. An empty tag defaults to English.
func ParseLanguage(s string) (Language, bool) {
	if strings.TrimSpace(s) == "" {
		return LanguageEnglish, true
	}
	l := Language(s)
	_, ok := Languages[l]
	return l, ok
}

// Code returns the short language code ("hi" for "hi-IN"), used as the
// localization catalogue key.
func (l Language) Code() string {
	code, _, _ := strings.Cut(string(l), "-")
	return code
}

// DefaultCategory is assigned to complaints filed without a category.
const DefaultCategory = "General"

// Complaint is a single grievance and its resolution lifecycle.
// The JSON shape is the persisted record format and must stay stable.
type Complaint struct {
	// ID is unique across the collection and assigned at creation.
	ID int64 `json:"id"`
	// Text is what the user dictated or typed.
	Text string `json:"text"`
	// CreatedAt never changes after creation.
	CreatedAt time.Time `json:"timestamp"`
	Language  Language  `json:"language"`
	Status    Status    `json:"status"`
	// Synced is true once the remote authority has acknowledged the record.
	Synced   bool     `json:"synced"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
	// Response and ResponseAt are set together by a responder.
	Response   string     `json:"response,omitempty"`
	ResponseAt *time.Time `json:"responseDate,omitempty"`
	// Rating is a 1-5 score given by the filer once resolved.
	Rating *int `json:"rating,omitempty"`
}

// HasResponse reports whether a responder has answered the complaint.
func (c Complaint) HasResponse() bool {
	return c.Response != "" && c.ResponseAt != nil
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (c Complaint) Clone() Complaint {
	out := c
	if c.ResponseAt != nil {
		t := *c.ResponseAt
		out.ResponseAt = &t
	}
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	return out
}

// Matches reports whether term occurs in the text or category, ignoring case.
func (c Complaint) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Text), term) ||
		strings.Contains(strings.ToLower(c.Category), term)
}
