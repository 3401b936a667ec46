package httptransport

import (
	"net/http"
	"time"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"avatar-server-go/internal/domain/tts"
	"avatar-server-go/internal/platform/config"
	"avatar-server-go/internal/platform/logging"
)

// TTSHandlers serves the synthesis service endpoints plus the shared audio
// directory.
type TTSHandlers struct {
	pipeline *tts.Pipeline
	speech   *config.Speech
	logger   *logging.Logger
}

func NewTTSHandlers(pipeline *tts.Pipeline, speech *config.Speech, logger *logging.Logger) *TTSHandlers {
	return &TTSHandlers{pipeline: pipeline, speech: speech, logger: logger}
}

func (h *TTSHandlers) Register(router *Router) {
	router.Engine.Use(static.Serve("/audios", static.LocalFile(h.pipeline.Store().Dir(), false)))
	router.Engine.POST("/generate-tts/", h.generate)
	router.Engine.GET("/languages/", h.languages)
	router.Engine.GET("/speakers/", h.speakers)
	router.Engine.GET("/health", h.health)
}

func (h *TTSHandlers) generate(c *gin.Context) {
	var req tts.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	artifact, err := h.pipeline.Synthesize(c.Request.Context(), req)
	if err != nil {
		h.logger.ErrorTag("tts", "synthesis failed: %v", err)
		RespondDomainError(c, err, "audio generation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audioId":   artifact.ID,
		"audioPath": artifact.PublicPath,
		"duration":  artifact.Duration.Seconds(),
	})
}

func (h *TTSHandlers) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.speech.Languages})
}

func (h *TTSHandlers) speakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"speakers": h.speech.Speakers})
}

func (h *TTSHandlers) health(c *gin.Context) {
	if err := h.pipeline.Store().Writable(); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "output directory not writable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "TTS Server",
		"version":    "1.0.0",
		"languages":  h.speech.Languages,
		"output_dir": h.pipeline.Store().Dir(),
		"in_flight":  h.pipeline.InFlight(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
