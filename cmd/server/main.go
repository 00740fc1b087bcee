package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/leadscout/leadscout/pkg/config"
	"github.com/leadscout/leadscout/pkg/database"
	"github.com/leadscout/leadscout/pkg/embeddings"
	"github.com/leadscout/leadscout/pkg/gemini"
	"github.com/leadscout/leadscout/pkg/server"
	"github.com/leadscout/leadscout/pkg/splitter"
	"github.com/leadscout/leadscout/pkg/usage"
	"github.com/leadscout/leadscout/pkg/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.GoogleApiKey == "" {
		log.Fatal("GOOGLE_API_KEY must be set")
	}

	ctx := context.Background()

	completer, err := gemini.NewClient(ctx, cfg.GoogleApiKey, gemini.Options{
		Model:           cfg.CompletionModel,
		MaxOutputTokens: int32(cfg.MaxOutputTokens),
		ThinkingBudget:  int32(cfg.ThinkingBudget),
	})
	if err != nil {
		log.Fatalf("Failed to create completion client: %v", err)
	}

	// The database is optional. Without it searches still work; usage
	// tracking becomes a no-op and the vault routes report unavailable.
	var db *database.PostgresDB
	var vaultStore *vault.Store
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, running without usage tracking and lead vault")
	} else {
		db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		if err := db.EnsureVectorExtension(ctx); err != nil {
			log.Fatalf("Failed to enable vector extension: %v", err)
		}
		if err := db.CreateVaultEmbeddingsTable(ctx, cfg.VaultTable, vault.Dimension()); err != nil {
			log.Fatalf("Failed to create vault embeddings table: %v", err)
		}

		embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
		if err != nil {
			log.Fatalf("Failed to create embedder: %v", err)
		}

		ts := splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
		vaultStore, err = vault.NewStore(db.Pool, embedder, ts, cfg.VaultTable)
		if err != nil {
			log.Fatalf("Failed to create vault store: %v", err)
		}
	}

	sink := usage.NewSink(db, "web", "leadscout-server")

	svc := server.NewService(completer, sink, vaultStore)
	handler := server.NewHandler(svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
