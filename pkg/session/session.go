// Package session owns the conversational state of one lead-research
// session: the append-only thread, the rolling chat-history window, the
// history log and the saved-lead set. All mutation goes through the
// transition methods; nothing else touches the state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadscout/leadscout/pkg/leads"
	"github.com/leadscout/leadscout/pkg/salvage"
)

const (
	// historyWindowLimit caps the rolling window at 6 exchanges.
	historyWindowLimit = 12

	// modelSummaryLimit bounds the synthesized model turn for TEXT results.
	modelSummaryLimit = 50

	failureMessage = "I couldn't complete that search. Please try again."
)

var (
	// ErrEmptyQuery rejects empty or whitespace-only submissions.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrBusy rejects a submission while another request is in flight.
	ErrBusy = errors.New("a request is already in flight")

	// ErrSuperseded marks a completion that resolved after the thread it
	// belonged to was reset. The response is discarded.
	ErrSuperseded = errors.New("response superseded by a thread reset")

	// ErrNotFound means no history item matches the given id.
	ErrNotFound = errors.New("history item not found")
)

// Completer is the completion endpoint contract: one request, raw text back.
type Completer interface {
	Complete(ctx context.Context, query string, history []leads.ChatMessage) (string, error)
}

// Tracker receives one usage event per completed query. Implementations must
// not block and must never return their failures into the session.
type Tracker interface {
	Track(query string, mode leads.Mode, leadCount int)
}

// ThreadEntry is one query slot in the thread. It is created loading and
// mutated exactly once, to carry its terminal result.
type ThreadEntry struct {
	Query     string        `json:"query"`
	Result    *leads.Result `json:"result,omitempty"`
	IsLoading bool          `json:"isLoading"`
}

// Session is safe for concurrent use; a mutex guards all state and is never
// held across the completion call.
type Session struct {
	completer Completer
	tracker   Tracker

	mu       sync.Mutex
	thread   []ThreadEntry
	window   []leads.ChatMessage
	history  []leads.HistoryItem
	saved    []leads.SavedLead
	inflight bool
	gen      uint64
}

func New(completer Completer, tracker Tracker) *Session {
	return &Session{
		completer: completer,
		tracker:   tracker,
	}
}

// Submit runs one query through the completion pipeline and resolves the
// thread entry it appends. It is single-flight: while a request is pending,
// further submissions fail with ErrBusy and leave the thread untouched.
// Completion, salvage and normalization failures never surface as errors;
// they resolve the entry to an out-of-context result with a retry prompt.
func (s *Session) Submit(ctx context.Context, query string) (ThreadEntry, error) {
	s.mu.Lock()
	if strings.TrimSpace(query) == "" {
		s.mu.Unlock()
		return ThreadEntry{}, ErrEmptyQuery
	}
	if s.inflight {
		s.mu.Unlock()
		return ThreadEntry{}, ErrBusy
	}

	first := len(s.thread) == 0
	s.thread = append(s.thread, ThreadEntry{Query: query, IsLoading: true})
	s.inflight = true
	gen := s.gen
	history := append([]leads.ChatMessage(nil), s.window...)
	s.mu.Unlock()

	result, err := s.process(ctx, query, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false

	// The thread was reset while this request was in flight; the entry it
	// would have resolved no longer exists.
	if gen != s.gen {
		return ThreadEntry{}, ErrSuperseded
	}

	last := len(s.thread) - 1
	if err != nil {
		s.thread[last].Result = &leads.Result{
			Mode:                leads.ModeOutOfContext,
			OutOfContextMessage: failureMessage,
			Query:               query,
		}
		s.thread[last].IsLoading = false
		return s.thread[last], nil
	}

	s.thread[last].Result = result
	s.thread[last].IsLoading = false

	if s.tracker != nil {
		s.tracker.Track(query, result.Mode, len(result.Leads))
	}

	if first {
		s.history = append([]leads.HistoryItem{{
			ID:        uuid.NewString(),
			Query:     query,
			Timestamp: time.Now().UnixMilli(),
			Result:    *result,
		}}, s.history...)
	}

	s.window = append(s.window,
		leads.NewChatMessage("user", query),
		leads.NewChatMessage("model", modelSummary(result)),
	)
	if len(s.window) > historyWindowLimit {
		s.window = s.window[len(s.window)-historyWindowLimit:]
	}

	return s.thread[last], nil
}

func (s *Session) process(ctx context.Context, query string, history []leads.ChatMessage) (*leads.Result, error) {
	raw, err := s.completer.Complete(ctx, query, history)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	salvaged, err := salvage.Extract(raw)
	if err != nil {
		return nil, err
	}
	return leads.Normalize(salvaged, query)
}

// modelSummary synthesizes the short model turn stored in the rolling window.
func modelSummary(result *leads.Result) string {
	if result.Mode == leads.ModeLead {
		return fmt.Sprintf("Found %d matches.", len(result.Leads))
	}
	if result.Summary == "" {
		return "Complete."
	}
	runes := []rune(result.Summary)
	if len(runes) > modelSummaryLimit {
		return string(runes[:modelSummaryLimit])
	}
	return result.Summary
}

// StartNewChat clears the thread and the rolling window. The history log and
// the saved-lead set survive. Any in-flight completion is left to finish and
// will be discarded when it resolves.
func (s *Session) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thread = nil
	s.window = nil
	s.gen++
}

// Restore replaces the thread with the single resolved entry captured in the
// history item. The rolling window is cleared: a restored thread cannot be
// followed up with its original context.
func (s *Session) Restore(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.history {
		if item.ID == itemID {
			result := item.Result
			s.thread = []ThreadEntry{{Query: item.Query, Result: &result}}
			s.window = nil
			s.gen++
			return nil
		}
	}
	return ErrNotFound
}

// SaveLead archives a lead, keyed on name. The first save wins; saving a name
// that already exists is a no-op. Returns whether the lead was newly saved.
func (s *Session) SaveLead(lead leads.Lead) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.saved {
		if existing.Name == lead.Name {
			return false
		}
	}
	s.saved = append([]leads.SavedLead{{
		Lead:    lead,
		SavedAt: time.Now().UnixMilli(),
	}}, s.saved...)
	return true
}

// Thread returns a copy of the current thread in submission order.
func (s *Session) Thread() []ThreadEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ThreadEntry(nil), s.thread...)
}

// History returns the history log, newest first.
func (s *Session) History() []leads.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]leads.HistoryItem(nil), s.history...)
}

// Window returns the current rolling chat-history window.
func (s *Session) Window() []leads.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]leads.ChatMessage(nil), s.window...)
}

// SavedLeads returns the saved-lead set, newest first.
func (s *Session) SavedLeads() []leads.SavedLead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]leads.SavedLead(nil), s.saved...)
}
