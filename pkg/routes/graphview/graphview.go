package graphview

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Mehrads/Brands-Relationships/pkg/graph"
)

// Handler serves whole-graph views and store statistics
type Handler struct {
	queries       *graph.QueryService
	relationships *graph.RelationshipService
	logger        ectologger.Logger
}

// NewHandler creates the graph view handler
func NewHandler(queries *graph.QueryService, relationships *graph.RelationshipService, logger ectologger.Logger) *Handler {
	return &Handler{
		queries:       queries,
		relationships: relationships,
		logger:        logger,
	}
}

// RegisterRoutes registers graph view routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/graph", h.Graph)
	g.GET("/stats", h.Stats)
	g.GET("/relationships", h.Relationships)
}

// Graph returns the node and edge set, optionally filtered by category. The
// edge count is bounded server-side.
func (h *Handler) Graph(c echo.Context) error {
	ctx := c.Request().Context()

	data, err := h.queries.GraphData(ctx, c.QueryParam("category"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, data)
}

// Stats returns store-wide counts
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.queries.Stats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// Relationships returns every stored edge at or above a confidence floor.
func (h *Handler) Relationships(c echo.Context) error {
	ctx := c.Request().Context()

	floor := 0.0
	if raw := c.QueryParam("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_confidence must be a number between 0 and 1")
		}
		floor = parsed
	}

	records, err := h.relationships.AboveConfidence(ctx, floor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, records)
}
