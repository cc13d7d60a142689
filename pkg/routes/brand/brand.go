package brand

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Mehrads/Brands-Relationships/pkg/graph"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/normalizers"
)

// Handler serves brand lookups against the graph store
type Handler struct {
	entities      *graph.EntityService
	relationships *graph.RelationshipService
	logger        ectologger.Logger
}

// NewHandler creates the brand handler
func NewHandler(entities *graph.EntityService, relationships *graph.RelationshipService, logger ectologger.Logger) *Handler {
	return &Handler{
		entities:      entities,
		relationships: relationships,
		logger:        logger,
	}
}

// RegisterRoutes registers brand routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/brands/:name", h.Get)
	g.GET("/brands/:name/relationships", h.Relationships)
}

// Get returns the stored brand node, keyed by canonical name. Lookups accept
// any variant that normalizes to the stored name.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	name := normalizers.NormalizeBrandName(c.Param("name"))
	if name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "brand name is required")
	}

	props, err := h.entities.Get(ctx, name)
	if err != nil {
		return err
	}
	if props == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "brand %s not found", name)
	}

	return c.JSON(http.StatusOK, brandFromProps(name, props))
}

func brandFromProps(name string, props map[string]any) models.Brand {
	b := models.Brand{Name: name}
	if raw, ok := props["aliases"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				b.Aliases = append(b.Aliases, s)
			}
		}
	}
	if ts, ok := props["updated_at"].(time.Time); ok {
		b.UpdatedAt = ts
	}
	return b
}

// Relationships returns all stored relationships touching a brand, optionally
// filtered by category and a minimum confidence.
func (h *Handler) Relationships(c echo.Context) error {
	ctx := c.Request().Context()

	name := normalizers.NormalizeBrandName(c.Param("name"))
	if name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "brand name is required")
	}

	category := c.QueryParam("category")

	minConfidence := 0.0
	if raw := c.QueryParam("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_confidence must be a number between 0 and 1")
		}
		minConfidence = parsed
	}

	records, err := h.relationships.AllForBrand(ctx, name, category)
	if err != nil {
		return err
	}

	if minConfidence > 0 {
		filtered := records[:0]
		for _, r := range records {
			if r.Confidence >= minConfidence {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return c.JSON(http.StatusOK, records)
}
