package review

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Mehrads/Brands-Relationships/internal/repositories/reviewitem"
	"github.com/Mehrads/Brands-Relationships/pkg/events"
)

var validate = validator.New()

// Handler serves the human review queue
type Handler struct {
	repo    *reviewitem.Repository
	emitter *events.Emitter
	logger  ectologger.Logger
}

// NewHandler creates the review handler
func NewHandler(repo *reviewitem.Repository, emitter *events.Emitter, logger ectologger.Logger) *Handler {
	return &Handler{
		repo:    repo,
		emitter: emitter,
		logger:  logger,
	}
}

// RegisterRoutes registers review queue routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/review", h.List)
	g.GET("/review/:id", h.Get)
	g.POST("/review/:id/resolve", h.Resolve)
}

// List returns pending review items, lowest confidence first
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}

	items, err := h.repo.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// Get returns one review item by ID
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	item, err := h.repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// ResolveRequest is the review decision payload
type ResolveRequest struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected"`
	ResolvedBy string `json:"resolved_by"`
}

// Resolve records a human decision on a review item
func (h *Handler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var resolvedBy *string
	if req.ResolvedBy != "" {
		resolvedBy = &req.ResolvedBy
	}

	if err := h.repo.UpdateStatusByID(ctx, id, req.Status, resolvedBy); err != nil {
		return err
	}

	item, err := h.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := h.emitter.EmitReviewResolved(ctx, item); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("Failed to emit review.resolved event")
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"review_item_id": id,
		"status":         req.Status,
	}).Info("Resolved review item")

	return c.JSON(http.StatusOK, item)
}
