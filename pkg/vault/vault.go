// Package vault persists archived leads and serves semantic search over
// their briefing text via pgvector.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/leadscout/leadscout/pkg/leads"
	"github.com/leadscout/leadscout/pkg/splitter"
)

const embeddingDimension = 1536

// Embedder is the embedding contract the vault needs; satisfied by
// embeddings.GoogleEmbedder.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store archives leads in Postgres and indexes their briefing text for
// similarity search.
type Store struct {
	pool      *pgxpool.Pool
	embedder  Embedder
	splitter  *splitter.TextSplitter
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Only allow alphanumeric characters and underscores
	// Table names must start with a letter or underscore and be between 1-63 chars (PostgreSQL limit)
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewStore creates a vault store over the given embeddings table.
func NewStore(pool *pgxpool.Pool, embedder Embedder, ts *splitter.TextSplitter, tableName string) (*Store, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &Store{
		pool:      pool,
		embedder:  embedder,
		splitter:  ts,
		tableName: tableName,
	}, nil
}

// Dimension returns the embedding width the vault's table must be created with.
func Dimension() int { return embeddingDimension }

// Archive persists a saved lead and indexes its briefing text. Re-archiving
// an existing name refreshes the stored record but leaves the original
// saved_at in place (first save wins). Indexing failures are logged and do
// not fail the archive; the lead itself is still stored.
func (s *Store) Archive(ctx context.Context, lead leads.Lead) error {
	leadJSON, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to marshal lead: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO saved_leads (name, lead) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		lead.Name, leadJSON)
	if err != nil {
		return fmt.Errorf("failed to store lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already archived; the existing index entries stand.
		return nil
	}

	if s.embedder == nil {
		return nil
	}
	if err := s.index(ctx, lead); err != nil {
		slog.Error("Failed to index archived lead", "lead", lead.Name, "error", err)
	}
	return nil
}

func (s *Store) index(ctx context.Context, lead leads.Lead) error {
	chunks, err := s.splitter.SplitText(briefingText(lead))
	if err != nil {
		return fmt.Errorf("failed to split briefing text: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed briefing text: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (lead_name, content, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(query, lead.Name, chunk, pgvector.NewVector(vectors[i]))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}
	return nil
}

// briefingText flattens the searchable prose of a lead into one document.
func briefingText(lead leads.Lead) string {
	parts := []string{lead.Name, lead.Description, lead.Industry, lead.Location}
	if b := lead.DetailedBriefing; b != nil {
		parts = append(parts, b.Overview, b.Background, b.Context)
	}
	for _, sig := range lead.GrowthSignals {
		parts = append(parts, sig.Activity)
	}

	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// Match is one vault search hit.
type Match struct {
	Lead    leads.SavedLead `json:"lead"`
	Score   float64         `json:"score"`
	Snippet string          `json:"snippet"`
}

// Search embeds the query and returns the nearest archived leads, best first.
// Multiple chunk hits for the same lead collapse to its best-scoring chunk.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (e.lead_name)
			e.lead_name, e.content, sl.lead, sl.saved_at,
			1 - (e.embedding <=> $1) AS similarity
		FROM %s e
		JOIN saved_leads sl ON sl.name = e.lead_name
		ORDER BY e.lead_name, e.embedding <=> $1
	`, pgx.Identifier{s.tableName}.Sanitize())

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(vec))
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			name     string
			snippet  string
			leadJSON []byte
			savedAt  time.Time
			score    float64
		)
		if err := rows.Scan(&name, &snippet, &leadJSON, &savedAt, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var lead leads.Lead
		if err := json.Unmarshal(leadJSON, &lead); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lead %q: %w", name, err)
		}

		matches = append(matches, Match{
			Lead:    leads.SavedLead{Lead: lead, SavedAt: savedAt.UnixMilli()},
			Score:   score,
			Snippet: snippet,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// List returns all archived leads, newest first.
func (s *Store) List(ctx context.Context) ([]leads.SavedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lead, saved_at FROM saved_leads ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved leads: %w", err)
	}
	defer rows.Close()

	var out []leads.SavedLead
	for rows.Next() {
		var (
			leadJSON []byte
			savedAt  time.Time
		)
		if err := rows.Scan(&leadJSON, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var lead leads.Lead
		if err := json.Unmarshal(leadJSON, &lead); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lead: %w", err)
		}
		out = append(out, leads.SavedLead{Lead: lead, SavedAt: savedAt.UnixMilli()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
