package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Redis  RedisConfig
	Auth   AuthConfig
	LLM    LLMConfig
	RAG    RAGConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	Backend    string // "sqlite" or "postgres"
	SQLitePath string
	URL        string // postgres connection string
	MaxConns   int
	MinConns   int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	OpenAIKey     string
	AnthropicKey  string
	CohereKey     string
	CohereBaseURL string
	ChatProvider  string
	ChatModel     string
	EmbedProvider string
	EmbedModel    string
	EmbedDim      int
	Temperature   float64
	MaxTokens     int
}

type RAGConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	EmbedBatchSize   int
	MergeThreshold   float64
	TabularThreshold float64
	TopK             int
	MinSimilarity    float64
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	embedDim, err := getEnvInt("EMBED_DIM", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_DIM: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	chunkSize, err := getEnvInt("RAG_CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("RAG_CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_OVERLAP: %w", err)
	}

	batchSize, err := getEnvInt("RAG_EMBED_BATCH_SIZE", 96)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_EMBED_BATCH_SIZE: %w", err)
	}

	topK, err := getEnvInt("RAG_TOP_K", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_TOP_K: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	mergeThreshold, err := getEnvFloat("RAG_MERGE_THRESHOLD", 0.9)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_MERGE_THRESHOLD: %w", err)
	}

	tabularThreshold, err := getEnvFloat("RAG_TABULAR_MERGE_THRESHOLD", 0.95)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_TABULAR_MERGE_THRESHOLD: %w", err)
	}

	minSimilarity, err := getEnvFloat("RAG_MIN_SIMILARITY", 0.35)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_MIN_SIMILARITY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Store: StoreConfig{
			Backend:    getEnv("STORE_BACKEND", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "data/assistant.db"),
			URL:        getEnv("DATABASE_URL", ""),
			MaxConns:   maxConns,
			MinConns:   minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			CohereKey:     getEnv("COHERE_API_KEY", ""),
			CohereBaseURL: getEnv("COHERE_BASE_URL", "https://api.cohere.com"),
			ChatProvider:  getEnv("LLM_CHAT_PROVIDER", "openai"),
			ChatModel:     getEnv("LLM_CHAT_MODEL", "gpt-4o-mini"),
			EmbedProvider: getEnv("LLM_EMBED_PROVIDER", "cohere"),
			EmbedModel:    getEnv("LLM_EMBED_MODEL", "embed-english-v3.0"),
			EmbedDim:      embedDim,
			Temperature:   temperature,
			MaxTokens:     maxTokens,
		},
		RAG: RAGConfig{
			ChunkSize:        chunkSize,
			ChunkOverlap:     chunkOverlap,
			EmbedBatchSize:   batchSize,
			MergeThreshold:   mergeThreshold,
			TabularThreshold: tabularThreshold,
			TopK:             topK,
			MinSimilarity:    minSimilarity,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Store.Backend == "postgres" && c.Store.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Store.Backend != "sqlite" && c.Store.Backend != "postgres" {
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
