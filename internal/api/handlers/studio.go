package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/prompt-architect/internal/api/middleware"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
	"github.com/Conceptual-Machines/prompt-architect/internal/share"
	"github.com/Conceptual-Machines/prompt-architect/internal/studio"
)

const (
	generationTimeout = 120 * time.Second
	analysisTimeout   = 180 * time.Second
	multipartOverhead = 1 << 20
)

// StudioHandler serves the wizard of the caller's session
type StudioHandler struct {
	registry  *studio.Registry
	publicURL *url.URL
}

func NewStudioHandler(registry *studio.Registry, publicURL *url.URL) *StudioHandler {
	return &StudioHandler{
		registry:  registry,
		publicURL: publicURL,
	}
}

func (h *StudioHandler) session(c *gin.Context) *studio.Session {
	return h.registry.Session(c.Request.Context(), middleware.SessionID(c))
}

// RestoreResponse reports whether a restore replaced the selection
type RestoreResponse struct {
	Restored bool   `json:"restored"`
	CleanURL string `json:"cleanUrl,omitempty"` // request url without the share parameter
	studio.View
}

type EnhanceRequest struct {
	Idea string `json:"idea"`
}

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type UseAnalysisRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type VideoTreatmentRequest struct {
	SongPrompt string `json:"songPrompt"`
}

type RestoreRequest struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (h *StudioHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).View())
}

func (h *StudioHandler) Action(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := req.Action()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.session(c).Dispatch(c.Request.Context(), action)
	respond(c, v, err)
}

func (h *StudioHandler) Randomize(c *gin.Context) {
	v, err := h.session(c).Dispatch(c.Request.Context(), selection.Randomize{})
	respond(c, v, err)
}

func (h *StudioHandler) Generate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), generationTimeout)
	defer cancel()

	v, err := h.session(c).Generate(ctx)
	respond(c, v, err)
}

func (h *StudioHandler) Enhance(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generationTimeout)
	defer cancel()

	v, err := h.session(c).Enhance(ctx, req.Idea)
	respond(c, v, err)
}

// Analyze accepts either JSON {"url": ...} or a multipart form with an
// audio "file" and an optional "url" field
func (h *StudioHandler) Analyze(c *gin.Context) {
	sess := h.session(c)

	var src studio.AudioSource
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		src, err = readUpload(c, sess.MaxUpload())
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		src.URL = req.URL
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), analysisTimeout)
	defer cancel()

	v, err := sess.Analyze(ctx, src)
	respond(c, v, err)
}

func readUpload(c *gin.Context, maxUpload int64) (studio.AudioSource, error) {
	limit := maxUpload + multipartOverhead
	if c.Request.ContentLength > limit {
		return studio.AudioSource{}, studio.FileTooLarge(maxUpload)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	src := studio.AudioSource{URL: c.PostForm("url")}
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return src, nil
	case err != nil:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return src, studio.FileTooLarge(maxUpload)
		}
		return src, &selection.ValidationError{Message: studio.MsgNoAudioSource}
	case fh.Size > maxUpload:
		return src, studio.FileTooLarge(maxUpload)
	}

	f, err := fh.Open()
	if err != nil {
		return src, err
	}
	defer f.Close()

	src.Data, err = io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		return src, err
	}
	logger.Debug("Received audio upload", logger.Fields{
		"session_id": middleware.SessionID(c),
		"filename":   fh.Filename,
		"bytes":      len(src.Data),
	})
	return src, nil
}

func (h *StudioHandler) UseAnalysis(c *gin.Context) {
	var req UseAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.session(c).UseAnalysis(c.Request.Context(), mode)
	respond(c, v, err)
}

func (h *StudioHandler) VideoTreatment(c *gin.Context) {
	var req VideoTreatmentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generationTimeout)
	defer cancel()

	v, err := h.session(c).VideoTreatment(ctx, req.SongPrompt)
	respond(c, v, err)
}

func (h *StudioHandler) Artists(c *gin.Context) {
	v := h.session(c).View()
	c.JSON(http.StatusOK, gin.H{
		"subgenre": v.State.Subgenre,
		"artists":  v.Artists,
		"loading":  v.ArtistsLoading,
	})
}

func (h *StudioHandler) Share(c *gin.Context) {
	link, err := h.session(c).Share(h.publicURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

// Restore loads a share token. An unusable token is not an error: the
// response reports restored=false and the unchanged session.
func (h *StudioHandler) Restore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := h.session(c)
	token := strings.TrimSpace(req.Token)
	var clean string
	if req.URL != "" {
		if token == "" {
			if tok, err := share.TokenFromURL(req.URL); err == nil {
				token = tok
			}
		}
		if u, err := share.StripToken(req.URL); err == nil {
			clean = u
		}
	}

	v, ok := sess.RestoreShare(c.Request.Context(), token)
	c.JSON(http.StatusOK, RestoreResponse{Restored: ok, CleanURL: clean, View: v})
}
