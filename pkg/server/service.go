package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/leadscout/leadscout/pkg/leads"
	"github.com/leadscout/leadscout/pkg/salvage"
	"github.com/leadscout/leadscout/pkg/session"
	"github.com/leadscout/leadscout/pkg/vault"
)

// Service owns the live sessions and the shared collaborators they run
// against. Sessions are in-memory; only usage events and archived leads
// persist.
type Service struct {
	completer session.Completer
	tracker   session.Tracker
	vault     *vault.Store // nil when no database is configured

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

func NewService(completer session.Completer, tracker session.Tracker, vaultStore *vault.Store) *Service {
	return &Service{
		completer: completer,
		tracker:   tracker,
		vault:     vaultStore,
		sessions:  make(map[uuid.UUID]*session.Session),
	}
}

// CreateSession registers a fresh session and returns its id.
func (s *Service) CreateSession() uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = session.New(s.completer, s.tracker)
	s.mu.Unlock()
	return id
}

// Session looks up a live session by id.
func (s *Service) Session(id uuid.UUID) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Vault returns the lead vault, or nil when persistence is not configured.
func (s *Service) Vault() *vault.Store {
	return s.vault
}

// Search runs one sessionless query through the full completion pipeline.
// Used by the MCP tool surface, which carries no conversational state.
func (s *Service) Search(ctx context.Context, query string) (*leads.Result, error) {
	raw, err := s.completer.Complete(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	salvaged, err := salvage.Extract(raw)
	if err != nil {
		return nil, err
	}
	return leads.Normalize(salvaged, query)
}

// Suggestions are the canned starter queries shown on an empty thread.
func (s *Service) Suggestions() []string {
	return []string{
		"High-growth startups",
		"Luxury retail owners",
		"Seed stage founders",
		"Boutique design teams",
	}
}
