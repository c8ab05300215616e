package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

// CatalogHandler serves the static option lists
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

type CatalogResponse struct {
	*catalog.Catalog
	Modes          []string `json:"modes"`
	LockableFields []string `json:"lockable_fields"`
	MaxInstruments int      `json:"max_instruments"`
}

func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	modes := []string{}
	for _, m := range []models.Mode{models.ModeInstrumental, models.ModeFullSong, models.ModeMagicWand, models.ModeAnalyzeTrack, models.ModeVideoTreatment} {
		modes = append(modes, m.String())
	}
	fields := make([]string, 0, len(models.AllFields))
	for _, f := range models.AllFields {
		fields = append(fields, f.String())
	}

	c.JSON(http.StatusOK, CatalogResponse{
		Catalog:        h.catalog,
		Modes:          modes,
		LockableFields: fields,
		MaxInstruments: models.MaxInstruments,
	})
}

// Influences lists the genres that may blend with the primary subgenre
func (h *CatalogHandler) Influences(c *gin.Context) {
	primary := c.Query("primary")
	c.JSON(http.StatusOK, gin.H{
		"primary":    primary,
		"influences": h.catalog.InfluenceOptions(primary),
	})
}
