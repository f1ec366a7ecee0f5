package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	commonlog "chatbot_server/server/common/log"
	"chatbot_server/server/common/middleware"
	"chatbot_server/server/common/transport/httpresp"
	"chatbot_server/server/recommend/domain"
	"chatbot_server/server/recommend/service"
)

// Recommender is the lookup the handler serves.
type Recommender interface {
	Recommend(ctx context.Context, query string) ([]string, error)
}

type RecommendResponse struct {
	Recommendations []string `json:"recommendations"`
}

type Handler struct {
	svc Recommender
	now func() time.Time
}

func NewHandler(svc Recommender) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(middleware.CORS())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewHealthResponse(h.now().UTC()))
	})
	r.OPTIONS("/recommend", func(c *gin.Context) {})
	r.POST("/recommend", h.recommend)
}

func (h *Handler) recommend(c *gin.Context) {
	var req domain.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrInvalidBody))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMissingMessage))
		return
	}

	startedAt := time.Now()
	items, err := h.svc.Recommend(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, service.ErrMissingMessage) {
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMissingMessage))
			return
		}
		commonlog.Errorf("event=recommend_query action=search status=failed latency_ms=%d error=%v", time.Since(startedAt).Milliseconds(), err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse("recommendation lookup failed"))
		return
	}
	commonlog.Infof("event=recommend_query action=search status=ok results=%d latency_ms=%d", len(items), time.Since(startedAt).Milliseconds())
	c.JSON(http.StatusOK, RecommendResponse{Recommendations: items})
}
