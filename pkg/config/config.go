package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleApiKey    string
	DatabaseURL     string
	CompletionModel string
	EmbeddingModel  string
	Port            string
	MaxOutputTokens int
	ThinkingBudget  int
	ChunkSize       int
	ChunkOverlap    int
	VaultTable      string
}

func Load() *Config {
	return &Config{
		GoogleApiKey:    getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CompletionModel: getEnv("COMPLETION_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		Port:            getEnv("PORT", "8080"),
		MaxOutputTokens: getEnvAsInt("MAX_OUTPUT_TOKENS", 3000),
		ThinkingBudget:  getEnvAsInt("THINKING_BUDGET", 400),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
		VaultTable:      getEnv("VAULT_TABLE", "lead_vault"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
