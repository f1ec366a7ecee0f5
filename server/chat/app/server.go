package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"chatbot_server/server/chat/api"
	"chatbot_server/server/chat/completion"
	"chatbot_server/server/chat/service"
	"chatbot_server/server/chat/store"
	commonauth "chatbot_server/server/common/auth"
	"chatbot_server/server/common/infra/cache"
	"chatbot_server/server/common/infra/mq"
	commonlog "chatbot_server/server/common/log"
)

type Server struct {
	HTTPServer *http.Server
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Publisher  *mq.Publisher
	Hub        *service.Hub
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	turnStore, err := store.New(cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("initialize turn store: %w", err)
	}
	if err := turnStore.Setup(ctx); err != nil {
		commonlog.Errorf("event=turn_store action=setup status=failed driver=%s error=%v", cfg.StoreDriver, err)
	} else {
		commonlog.Infof("event=turn_store action=setup status=ok driver=%s", cfg.StoreDriver)
	}

	var budget service.HistoryFitter
	if cfg.UseHistory {
		b, err := completion.NewBudget(cfg.ContextTokens)
		if err != nil {
			commonlog.Warnf("event=chat_budget action=load status=failed error=%v", err)
		} else {
			budget = b
		}
	}
	completer := completion.NewOpenAICompleter(completion.Config{
		BaseURL:     cfg.CompletionBaseURL,
		APIKey:      cfg.CompletionAPIKey,
		Model:       cfg.ModelPath,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
		System:      cfg.SystemPrompt,
	})
	commonlog.Infof("event=chat_model action=configure model=%s base_url=%s", cfg.ModelPath, cfg.CompletionBaseURL)

	s := &Server{Hub: service.NewHub()}

	if strings.TrimSpace(cfg.RedisAddr) != "" {
		s.Redis = cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(ctx, s.Redis); err != nil {
			commonlog.Errorf("event=chat_hub action=redis_ping status=failed addr=%s error=%v", cfg.RedisAddr, err)
			_ = s.Redis.Close()
			s.Redis = nil
		} else {
			s.Hub.UseRedis(s.Redis)
			if err := s.Hub.StartRedisSubscriber(context.Background()); err != nil {
				return nil, fmt.Errorf("start redis subscriber: %w", err)
			}
		}
	}

	var events service.EventPublisher
	if cfg.UseMQ {
		s.MQConn, err = mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			return nil, fmt.Errorf("initialize lavinmq: %w", err)
		}
		s.Publisher, err = mq.NewPublisher(s.MQConn, mq.EventsExchange)
		if err != nil {
			_ = s.MQConn.Close()
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		events = s.Publisher
	}

	chatSvc := service.NewChatService(service.NewResponder(completer, budget), turnStore, events, service.Options{
		HistoryLimit: cfg.HistoryLimit,
		UseHistory:   cfg.UseHistory,
	})
	auth := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	h := api.NewHandler(chatSvc, s.Hub, auth)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	s.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Hub != nil {
		s.Hub.StopRedisSubscriber()
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
