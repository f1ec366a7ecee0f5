package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chatbot_server/server/common/infra/object"
	commonlog "chatbot_server/server/common/log"
	recommendapi "chatbot_server/server/recommend/api"
	"chatbot_server/server/recommend/service"
)

type Server struct {
	HTTPServer *http.Server
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var objects service.ObjectReader
	if strings.HasPrefix(strings.TrimSpace(cfg.ListingsSource), "minio://") {
		client, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		objects = func(ctx context.Context, bucket, key string) ([]byte, error) {
			return object.ReadObject(ctx, client, bucket, key)
		}
	}
	listings, err := service.LoadListings(ctx, cfg.ListingsSource, objects)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	rec, err := service.NewRecommender(ctx, embedder, listings, service.Options{
		TopK:        cfg.TopK,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("build recommendation index: %w", err)
	}
	commonlog.Infof("event=recommend_service action=ready source=%s embedder=%s top_k=%d", cfg.ListingsSource, cfg.EmbedderBackend, cfg.TopK)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	recommendapi.NewHandler(rec).RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{HTTPServer: httpServer}, nil
}

func newEmbedder(cfg Config) (service.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedderBackend)) {
	case "", "hash":
		return service.NewHashEmbedder(cfg.HashDim), nil
	case "openai":
		return service.NewOpenAIEmbedder(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.EmbedderBackend)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}
