// Package leads defines the lead-research result model shared by the
// completion client, the session state machine and the HTTP surface.
package leads

// Mode tags the result variant. The value arrives as a free-form string from
// the model and is normalized exactly once, at the boundary in Normalize.
type Mode string

const (
	ModeLead         Mode = "LEAD"
	ModeText         Mode = "TEXT"
	ModeOutOfContext Mode = "OUT_OF_CONTEXT"
)

type Socials struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

type KeyPerson struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// GrowthSignal is a dated activity indicating momentum (funding, hiring,
// launches).
type GrowthSignal struct {
	Activity string `json:"activity"`
	Date     string `json:"date"`
}

type DetailedBriefing struct {
	Overview   string `json:"overview"`
	Background string `json:"background"`
	Context    string `json:"context"`
}

// Lead is one researched person or company. MatchScore and MarketHeat are
// percentages in [0,100] by convention; out-of-range values pass through and
// only display layers round them.
type Lead struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Industry         string            `json:"industry"`
	Location         string            `json:"location"`
	Website          string            `json:"website,omitempty"`
	Email            string            `json:"email,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Socials          *Socials          `json:"socials,omitempty"`
	KeyPeople        []KeyPerson       `json:"keyPeople,omitempty"`
	GrowthSignals    []GrowthSignal    `json:"growthSignals,omitempty"`
	MatchScore       float64           `json:"matchScore"`
	MarketHeat       float64           `json:"marketHeat"`
	Type             string            `json:"type"` // "person" or "company"
	DetailedBriefing *DetailedBriefing `json:"detailedBriefing,omitempty"`
}

// Result is the normalized outcome of one query. Which fields are populated
// depends on Mode: LEAD carries Leads/Explanation/FollowUps, TEXT carries
// Summary/Paragraphs, OUT_OF_CONTEXT carries OutOfContextMessage. Query is
// always set by Normalize.
type Result struct {
	Mode                Mode     `json:"mode"`
	Summary             string   `json:"summary,omitempty"`
	Paragraphs          []string `json:"paragraphs,omitempty"`
	Leads               []Lead   `json:"leads,omitempty"`
	Explanation         string   `json:"explanation,omitempty"`
	OutOfContextMessage string   `json:"outOfContextMessage,omitempty"`
	FollowUps           []string `json:"followUps,omitempty"`
	Query               string   `json:"query"`
}

// SavedLead is a Lead archived by the user, keyed on Name.
type SavedLead struct {
	Lead
	SavedAt int64 `json:"savedAt"` // unix milliseconds
}

// HistoryItem is a snapshot of a completed thread's first turn, used to
// restore that thread later.
type HistoryItem struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Result    Result `json:"result"`
}

// ChatMessage is one turn of the rolling history window sent back to the
// completion endpoint for continuity.
type ChatMessage struct {
	Role  string     `json:"role"` // "user" or "model"
	Parts []PartText `json:"parts"`
}

type PartText struct {
	Text string `json:"text"`
}

// NewChatMessage builds a single-part turn.
func NewChatMessage(role, text string) ChatMessage {
	return ChatMessage{Role: role, Parts: []PartText{{Text: text}}}
}
