package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot_server/server/chat/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "HOST", "STORE_DRIVER", "DB_NAME", "MODEL_PATH", "CHAT_HISTORY_LIMIT", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "5001", cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, store.DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "boarding_house_chatbot", cfg.MongoDatabase)
	assert.Equal(t, "microsoft/DialoGPT-medium", cfg.ModelPath)
	assert.Equal(t, store.DefaultHistoryLimit, cfg.HistoryLimit)
	assert.InDelta(t, 0.8, cfg.Temperature, 1e-6)
	assert.Empty(t, cfg.RedisAddr)
}

func TestNewServerWithMemoryStore(t *testing.T) {
	cfg := LoadConfig()
	cfg.StoreDriver = store.DriverMemory
	cfg.RedisAddr = ""
	cfg.UseMQ = false
	cfg.Host = "127.0.0.1"
	cfg.Port = "0"

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.HTTPServer.Addr)
	assert.Nil(t, srv.Redis)
	assert.Nil(t, srv.Publisher)
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewServerRejectsUnknownDriver(t *testing.T) {
	cfg := LoadConfig()
	cfg.StoreDriver = "cassandra"
	_, err := NewServer(cfg)
	assert.ErrorIs(t, err, store.ErrUnknownDriver)
}
