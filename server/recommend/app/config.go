package app

import cmnenv "chatbot_server/server/common/env"

type Config struct {
	Env  string
	Host string
	Port string

	ListingsSource string
	TopK           int
	BatchSize      int
	Concurrency    int

	EmbedderBackend string
	EmbedBaseURL    string
	EmbedAPIKey     string
	EmbedModel      string
	HashDim         int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

func LoadConfig() Config {
	return Config{
		Env:             cmnenv.String("APP_ENV", "dev"),
		Host:            cmnenv.String("HOST", "0.0.0.0"),
		Port:            cmnenv.String("RECOMMEND_PORT", "5002"),
		ListingsSource:  cmnenv.String("LISTINGS_SOURCE", "builtin"),
		TopK:            cmnenv.Int("RECOMMEND_TOP_K", 3),
		BatchSize:       cmnenv.Int("EMBED_BATCH_SIZE", 16),
		Concurrency:     cmnenv.Int("EMBED_CONCURRENCY", 4),
		EmbedderBackend: cmnenv.String("EMBEDDER", "hash"),
		EmbedBaseURL:    cmnenv.String("EMBED_BASE_URL", "http://localhost:8000/v1"),
		EmbedAPIKey:     cmnenv.String("EMBED_API_KEY", ""),
		EmbedModel:      cmnenv.String("EMBED_MODEL", "all-MiniLM-L6-v2"),
		HashDim:         cmnenv.Int("EMBED_HASH_DIM", 256),
		MinioEndpoint:   cmnenv.String("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  cmnenv.String("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:  cmnenv.String("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:     cmnenv.Bool("MINIO_USE_SSL", false),
	}
}
