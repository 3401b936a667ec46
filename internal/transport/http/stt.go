package httptransport

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"avatar-server-go/internal/domain/stt"
	"avatar-server-go/internal/platform/config"
	"avatar-server-go/internal/platform/logging"
)

type transcribeStoredRequest struct {
	AudioID  string `json:"audio_id"`
	Language string `json:"language"`
}

// STTHandlers serves the transcription service endpoints.
type STTHandlers struct {
	service *stt.Service
	speech  *config.Speech
	logger  *logging.Logger
}

func NewSTTHandlers(service *stt.Service, speech *config.Speech, logger *logging.Logger) *STTHandlers {
	return &STTHandlers{service: service, speech: speech, logger: logger}
}

func (h *STTHandlers) Register(router *Router) {
	router.Engine.POST("/transcribe/", h.transcribe)
	router.Engine.POST("/transcribe-file/", h.transcribeStored)
	router.Engine.GET("/languages/", h.languages)
	router.Engine.GET("/speakers/", h.speakers)
	router.Engine.GET("/health", h.health)
}

func (h *STTHandlers) transcribe(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "audio file required")
		return
	}

	file, err := header.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "failed to read upload")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.service.Transcribe(
		c.Request.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		audio,
		c.Query("language"),
	)
	if err != nil {
		h.logger.ErrorTag("stt", "transcription failed: %v", err)
		RespondDomainError(c, err, "transcription failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *STTHandlers) transcribeStored(c *gin.Context) {
	var req transcribeStoredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.TranscribeStored(c.Request.Context(), req.AudioID, req.Language)
	if err != nil {
		if errors.Is(err, stt.ErrArtifactNotFound) {
			RespondError(c, http.StatusNotFound, "audio file not found")
			return
		}
		h.logger.ErrorTag("stt", "transcription failed: %v", err)
		RespondDomainError(c, err, "transcription failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *STTHandlers) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.speech.Languages})
}

func (h *STTHandlers) speakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"speakers": h.speech.Speakers})
}

func (h *STTHandlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "STT Server",
		"version":   "1.0.0",
		"languages": h.speech.Languages,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
