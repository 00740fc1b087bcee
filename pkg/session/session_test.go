package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/leadscout/leadscout/pkg/leads"
)

type completerFunc func(ctx context.Context, query string, history []leads.ChatMessage) (string, error)

func (f completerFunc) Complete(ctx context.Context, query string, history []leads.ChatMessage) (string, error) {
	return f(ctx, query, history)
}

type trackEvent struct {
	query     string
	mode      leads.Mode
	leadCount int
}

type recordingTracker struct {
	mu     sync.Mutex
	events []trackEvent
}

func (r *recordingTracker) Track(query string, mode leads.Mode, leadCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, trackEvent{query, mode, leadCount})
}

func (r *recordingTracker) all() []trackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trackEvent(nil), r.events...)
}

func leadResponse(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"name":"Lead %d","description":"d","industry":"SaaS","location":"Berlin","matchScore":90,"marketHeat":80,"type":"company"}`, i)
	}
	return fmt.Sprintf(`{"mode":"lead","leads":[%s]}`, strings.Join(items, ","))
}

func fixed(response string) completerFunc {
	return func(context.Context, string, []leads.ChatMessage) (string, error) {
		return response, nil
	}
}

func TestSubmitResolvesLeadResult(t *testing.T) {
	tracker := &recordingTracker{}
	s := New(fixed(leadResponse(7)), tracker)

	entry, err := s.Submit(context.Background(), "Seed stage founders")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if entry.IsLoading {
		t.Error("resolved entry must not be loading")
	}
	if entry.Result == nil || entry.Result.Mode != leads.ModeLead {
		t.Fatalf("result mode = %v, want LEAD", entry.Result)
	}
	if len(entry.Result.Leads) != 7 {
		t.Errorf("leads = %d, want 7", len(entry.Result.Leads))
	}
	if entry.Result.Query != "Seed stage founders" {
		t.Errorf("result query = %q", entry.Result.Query)
	}

	if got := s.Thread(); len(got) != 1 {
		t.Errorf("thread length = %d, want 1", len(got))
	}
	if got := s.History(); len(got) != 1 || got[0].Query != "Seed stage founders" {
		t.Errorf("history log = %+v, want 1 item for the first turn", got)
	}

	window := s.Window()
	if len(window) != 2 {
		t.Fatalf("window length = %d, want 2", len(window))
	}
	if window[0].Role != "user" || window[0].Parts[0].Text != "Seed stage founders" {
		t.Errorf("user turn = %+v", window[0])
	}
	if window[1].Role != "model" || window[1].Parts[0].Text != "Found 7 matches." {
		t.Errorf("model turn = %+v", window[1])
	}

	events := tracker.all()
	if len(events) != 1 || events[0] != (trackEvent{"Seed stage founders", leads.ModeLead, 7}) {
		t.Errorf("usage events = %+v", events)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	tracker := &recordingTracker{}
	s := New(completerFunc(func(context.Context, string, []leads.ChatMessage) (string, error) {
		return "", errors.New("provider unavailable")
	}), tracker)

	entry, err := s.Submit(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if entry.Result == nil || entry.Result.Mode != leads.ModeOutOfContext {
		t.Fatalf("result = %+v, want OUT_OF_CONTEXT", entry.Result)
	}
	if entry.Result.OutOfContextMessage != failureMessage {
		t.Errorf("message = %q", entry.Result.OutOfContextMessage)
	}
	if strings.Contains(entry.Result.OutOfContextMessage, "provider unavailable") {
		t.Error("raw error detail must not leak into the result")
	}
	if len(s.History()) != 0 {
		t.Error("failed turns must not create history items")
	}
	if len(s.Window()) != 0 {
		t.Error("failed turns must not touch the rolling window")
	}
	if len(tracker.all()) != 0 {
		t.Error("failed turns must not emit usage events")
	}
}

func TestSubmitUnparseableResponse(t *testing.T) {
	s := New(fixed("I am unable to help with that."), nil)

	entry, err := s.Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if entry.Result == nil || entry.Result.Mode != leads.ModeOutOfContext {
		t.Fatalf("result = %+v, want OUT_OF_CONTEXT fallback", entry.Result)
	}
}

func TestSubmitEmptyQuery(t *testing.T) {
	s := New(fixed(`{"mode":"TEXT"}`), nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := s.Submit(context.Background(), q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Submit(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
	if len(s.Thread()) != 0 {
		t.Error("rejected submissions must not touch the thread")
	}
}

func TestSubmitSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(completerFunc(func(context.Context, string, []leads.ChatMessage) (string, error) {
		close(started)
		<-release
		return `{"mode":"TEXT","summary":"done"}`, nil
	}), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Submit(context.Background(), "first"); err != nil {
			t.Errorf("first Submit() error: %v", err)
		}
	}()

	<-started
	if _, err := s.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit() error = %v, want ErrBusy", err)
	}
	close(release)
	wg.Wait()

	if got := s.Thread(); len(got) != 1 || got[0].Query != "first" {
		t.Errorf("thread = %+v, want only the first entry", got)
	}
}

func TestSubmitStaleGenerationDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(completerFunc(func(context.Context, string, []leads.ChatMessage) (string, error) {
		close(started)
		<-release
		return leadResponse(7), nil
	}), nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "old thread query")
		errCh <- err
	}()

	<-started
	s.StartNewChat()
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Submit() error = %v, want ErrSuperseded", err)
	}
	if len(s.Thread()) != 0 {
		t.Error("stale response must not patch the reset thread")
	}
	if len(s.Window()) != 0 || len(s.History()) != 0 {
		t.Error("stale response must not update window or history")
	}
}

func TestWindowBoundedFIFO(t *testing.T) {
	s := New(fixed(`{"mode":"TEXT","summary":"ok"}`), nil)

	for i := 0; i < 8; i++ {
		if _, err := s.Submit(context.Background(), fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}

	window := s.Window()
	if len(window) != historyWindowLimit {
		t.Fatalf("window length = %d, want %d", len(window), historyWindowLimit)
	}
	// 8 exchanges produce 16 turns; the oldest 4 are evicted, so the window
	// opens with the user turn of the third exchange.
	if window[0].Role != "user" || window[0].Parts[0].Text != "q2" {
		t.Errorf("window[0] = %+v, want user turn q2", window[0])
	}
	if window[len(window)-1].Role != "model" {
		t.Errorf("window must end with a model turn, got %+v", window[len(window)-1])
	}
}

func TestModelSummaryTruncation(t *testing.T) {
	long := strings.Repeat("Größe ", 20) // multi-byte runes
	s := New(fixed(fmt.Sprintf(`{"mode":"TEXT","summary":%q}`, long)), nil)

	if _, err := s.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	window := s.Window()
	got := window[1].Parts[0].Text
	if want := string([]rune(long)[:modelSummaryLimit]); got != want {
		t.Errorf("model summary = %q, want first %d runes", got, modelSummaryLimit)
	}
}

func TestStartNewChatKeepsHistoryAndSavedLeads(t *testing.T) {
	s := New(fixed(leadResponse(7)), nil)

	if _, err := s.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	s.SaveLead(leads.Lead{Name: "Keeper"})
	s.StartNewChat()

	if len(s.Thread()) != 0 || len(s.Window()) != 0 {
		t.Error("StartNewChat must clear thread and window")
	}
	if len(s.History()) != 1 {
		t.Error("StartNewChat must keep the history log")
	}
	if len(s.SavedLeads()) != 1 {
		t.Error("StartNewChat must keep saved leads")
	}
}

func TestSaveLeadIdempotentByName(t *testing.T) {
	s := New(nil, nil)

	if !s.SaveLead(leads.Lead{Name: "Acme", Description: "original"}) {
		t.Error("first save should report newly saved")
	}
	if s.SaveLead(leads.Lead{Name: "Acme", Description: "changed"}) {
		t.Error("duplicate save should be a no-op")
	}
	s.SaveLead(leads.Lead{Name: "Nimbus"})

	saved := s.SavedLeads()
	if len(saved) != 2 {
		t.Fatalf("saved = %d, want 2", len(saved))
	}
	// Newest first, and the first-saved instance wins.
	if saved[0].Name != "Nimbus" || saved[1].Name != "Acme" {
		t.Errorf("order = [%s, %s], want [Nimbus, Acme]", saved[0].Name, saved[1].Name)
	}
	if saved[1].Description != "original" {
		t.Errorf("description = %q, want the first-saved instance", saved[1].Description)
	}
}

func TestRestore(t *testing.T) {
	s := New(fixed(leadResponse(7)), nil)

	if _, err := s.Submit(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}

	item := s.History()[0]
	if err := s.Restore(item.ID); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	thread := s.Thread()
	if len(thread) != 1 {
		t.Fatalf("thread length = %d, want 1", len(thread))
	}
	if thread[0].IsLoading || thread[0].Result == nil || thread[0].Query != item.Query {
		t.Errorf("restored entry = %+v", thread[0])
	}
	if len(s.Window()) != 0 {
		t.Error("restore must not carry the old rolling window")
	}

	if err := s.Restore("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Restore(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSubmitPassesWindowToCompleter(t *testing.T) {
	var captured []leads.ChatMessage
	s := New(completerFunc(func(_ context.Context, _ string, history []leads.ChatMessage) (string, error) {
		captured = append([]leads.ChatMessage(nil), history...)
		return `{"mode":"TEXT","summary":"ok"}`, nil
	}), nil)

	if _, err := s.Submit(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if len(captured) != 0 {
		t.Errorf("first call history = %d turns, want 0", len(captured))
	}
	if _, err := s.Submit(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}
	if len(captured) != 2 || captured[0].Parts[0].Text != "first" {
		t.Errorf("second call history = %+v, want the first exchange", captured)
	}
}
