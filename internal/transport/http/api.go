package httptransport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"avatar-server-go/internal/domain/llm"
	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
)

type generateRequest struct {
	History []llm.Message `json:"history"`
}

type generateResponse struct {
	Text    string `json:"text"`
	AudioID string `json:"audioId,omitempty"`
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// APIHandlers serves the user-facing generation endpoints.
type APIHandlers struct {
	service *llm.Service
	backend llm.Backend
	proxy   *llm.TTSProxy
	logger  *logging.Logger
}

func NewAPIHandlers(service *llm.Service, backend llm.Backend, proxy *llm.TTSProxy, logger *logging.Logger) *APIHandlers {
	return &APIHandlers{service: service, backend: backend, proxy: proxy, logger: logger}
}

func (h *APIHandlers) Register(router *Router) {
	api := router.Engine.Group("/api")
	api.POST("/generate", h.generate)
	api.POST("/tts", h.tts)
	router.Engine.GET("/health", h.health)
}

func (h *APIHandlers) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.service.Generate(c.Request.Context(), req.History)
	if err != nil {
		h.logger.ErrorTag("api", "generation failed: %v", err)
		RespondDomainError(c, err, "failed to generate a response")
		return
	}

	c.JSON(http.StatusOK, generateResponse{Text: reply.Text})
}

func (h *APIHandlers) tts(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		RespondError(c, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if strings.TrimSpace(req.Lang) == "" {
		RespondError(c, http.StatusBadRequest, "lang cannot be empty")
		return
	}

	result, err := h.proxy.Synthesize(c.Request.Context(), req.Text, req.Lang)
	if err != nil {
		h.logger.ErrorTag("api", "tts proxy failed: %v", err)
		switch {
		case llm.TimedOut(err):
			RespondError(c, http.StatusGatewayTimeout, "timeout during speech synthesis")
		case platformerrors.IsKind(err, platformerrors.KindTransient):
			RespondError(c, http.StatusBadGateway, "failed to reach the synthesis service")
		default:
			RespondDomainError(c, err, "speech synthesis failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"audioPath": result.AudioPath})
}

func (h *APIHandlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := llm.Ping(ctx, h.backend); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "llm error: " + err.Error()})
		return
	}

	stats := h.service.CacheStats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Avatar Backend API",
		"version": "1.0.0",
		"cache": gin.H{
			"entries":   stats.Size,
			"hits":      stats.Hits,
			"misses":    stats.Misses,
			"evictions": stats.Evictions,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
