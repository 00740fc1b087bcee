package database

import (
	"context"
	"fmt"
)

// InitSchema creates the tables the service relies on. All statements are
// idempotent so the schema can be re-applied on every start.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Usage Logs Table (timestamp is server-assigned)
	usageQuery := `
		CREATE TABLE IF NOT EXISTS usage_logs (
			id SERIAL PRIMARY KEY,
			query TEXT NOT NULL,
			mode TEXT NOT NULL,
			lead_count INTEGER NOT NULL DEFAULT 0,
			platform TEXT,
			user_agent TEXT,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, usageQuery); err != nil {
		return fmt.Errorf("failed to create usage_logs table: %w", err)
	}

	// 2. Saved Leads Table (the persistent vault; name is the identity)
	leadsQuery := `
		CREATE TABLE IF NOT EXISTS saved_leads (
			name TEXT PRIMARY KEY,
			lead JSONB NOT NULL,
			saved_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, leadsQuery); err != nil {
		return fmt.Errorf("failed to create saved_leads table: %w", err)
	}

	// Indexes for faster querying
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_usage_logs_timestamp ON usage_logs(timestamp DESC)"); err != nil {
		return fmt.Errorf("failed to create index on usage_logs: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_saved_leads_saved_at ON saved_leads(saved_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on saved_leads: %w", err)
	}

	return nil
}

// CreateVaultEmbeddingsTable creates the embeddings table backing vault
// search if it doesn't exist
func (db *PostgresDB) CreateVaultEmbeddingsTable(ctx context.Context, tableName string, dimension int) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lead_name TEXT NOT NULL REFERENCES saved_leads(name) ON DELETE CASCADE,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, tableName, dimension)

	_, err := db.Pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	// HNSW and IVFFlat support up to 2000 dimensions. Above that we skip the
	// index and rely on exact search (slower but works).
	if dimension <= 2000 {
		indexQuery := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)
		`, tableName, tableName)

		_, err = db.Pool.Exec(ctx, indexQuery)
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", tableName, err)
		}
	}

	return nil
}
