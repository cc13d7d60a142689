package analysis

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Mehrads/Brands-Relationships/internal/repositories/reviewitem"
	pkgcontext "github.com/Mehrads/Brands-Relationships/pkg/context"
	"github.com/Mehrads/Brands-Relationships/pkg/events"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/resolver"
)

var validate = validator.New()

// Handler serves the document analysis endpoint
type Handler struct {
	resolver *resolver.Resolver
	reviews  *reviewitem.Repository
	emitter  *events.Emitter
	logger   ectologger.Logger
}

// NewHandler creates the analysis handler. The review repository may be nil
// when the review queue is disabled.
func NewHandler(r *resolver.Resolver, reviews *reviewitem.Repository, emitter *events.Emitter, logger ectologger.Logger) *Handler {
	return &Handler{
		resolver: r,
		reviews:  reviews,
		emitter:  emitter,
		logger:   logger,
	}
}

// RegisterRoutes registers the analysis endpoint
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/analyze", h.Analyze)
}

// Analyze runs the full pipeline over a document and returns the resolved
// relationship set.
func (h *Handler) Analyze(c echo.Context) error {
	var req models.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := pkgcontext.SetSubjectBrand(c.Request().Context(), req.SubjectBrand)

	result, err := h.resolver.Analyze(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"subject": req.SubjectBrand,
		}).Error("Analysis failed")
		return httperror.NewHTTPError(http.StatusBadGateway, "analysis failed")
	}

	// review queue and event emission are best-effort; the caller still gets
	// the full result
	if h.reviews != nil && len(result.FlaggedItems) > 0 {
		if err := h.reviews.CreateFromFlagged(ctx, result.FlaggedItems); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Failed to persist flagged items")
			result.Warnings = append(result.Warnings, "failed to persist flagged items to review queue")
		}
	}

	if h.emitter.Enabled() {
		if err := h.emitter.EmitRelationshipsResolved(ctx, result.Relationships); err != nil {
			result.Warnings = append(result.Warnings, "failed to emit relationship events")
		}
		if err := h.emitter.EmitReviewFlagged(ctx, result.FlaggedItems); err != nil {
			result.Warnings = append(result.Warnings, "failed to emit review events")
		}
	}

	return c.JSON(http.StatusOK, result)
}
