package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
	"github.com/Conceptual-Machines/prompt-architect/internal/services"
	"github.com/Conceptual-Machines/prompt-architect/internal/studio"
)

const msgBusy = "This request is already in progress."

var badRequestErrors = []error{
	selection.ErrInvalidTransition,
	selection.ErrInvalidMode,
	selection.ErrUnknownCategory,
	selection.ErrUnknownSubgenre,
	selection.ErrUnknownStructure,
	selection.ErrInfluenceConflict,
	selection.ErrEmptyValue,
	selection.ErrInvalidConfiguration,
	selection.ErrUnknownAction,
}

// respond writes v on success, otherwise maps err onto a status code
func respond(c *gin.Context, v studio.View, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func respondError(c *gin.Context, err error) {
	var verr *selection.ValidationError
	var gerr *services.GenerationError
	var rerr *selection.RestoreError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, studio.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": msgBusy})
	case errors.As(err, &gerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": gerr.Message})
	case errors.As(err, &rerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled request error", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func isBadRequest(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
