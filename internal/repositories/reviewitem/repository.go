package reviewitem

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Mehrads/Brands-Relationships/pkg/database"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// Repository handles review queue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a single review item
func (r *Repository) Create(ctx context.Context, item *models.ReviewItem) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.Create")
	defer span.End()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	item.Status = models.ReviewItemStatusPending

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_items")
	sb.Cols("id", "item_type", "source", "target", "category", "context", "confidence", "rationale", "status", "created_at", "updated_at")
	sb.Values(item.ID, item.ItemType, item.Source, item.Target, item.Category, item.Context, item.Confidence, item.Rationale, item.Status, item.CreatedAt, item.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_item_id": item.ID}).Error("Failed to create review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review item")
	}

	return item, nil
}

// CreateFromFlagged persists one quality-gate batch to the review queue. An
// existing pending row for the same relationship key is updated in place
// rather than duplicated.
func (r *Repository) CreateFromFlagged(ctx context.Context, items []models.FlaggedItem) error {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.CreateFromFlagged")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_items")
	sb.Cols("id", "item_type", "source", "target", "category", "context", "confidence", "rationale", "status", "created_at", "updated_at")

	for _, item := range items {
		row := models.ReviewItem{
			ID:         uuid.New().String(),
			ItemType:   string(item.Type),
			Source:     item.Name,
			Confidence: item.Confidence,
			Rationale:  item.Rationale,
		}
		if item.Key != nil {
			row.Source = item.Key.Source
			row.Target = item.Key.Target
			row.Category = item.Key.Category
			row.Context = item.Key.Context
		}
		sb.Values(row.ID, row.ItemType, row.Source, row.Target, row.Category, row.Context, row.Confidence, row.Rationale, models.ReviewItemStatusPending, now, now)
	}

	query, args := sb.Build()
	query += " ON CONFLICT (item_type, source, target, category, context) WHERE status = 'pending' DO UPDATE SET confidence = EXCLUDED.confidence, rationale = EXCLUDED.rationale, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create review items batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review items")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(items)}).Debug("Created review items batch")
	return nil
}

// Get retrieves a review item by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "item_type", "source", "target", "category", "context", "confidence", "rationale", "status", "created_at", "updated_at", "resolved_at", "resolved_by")
	sb.From("review_items")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}

	return &item, nil
}

// ListPending retrieves pending review items, lowest confidence first
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "item_type", "source", "target", "category", "context", "confidence", "rationale", "status", "created_at", "updated_at", "resolved_at", "resolved_by")
	sb.From("review_items")
	sb.Where(sb.Equal("status", models.ReviewItemStatusPending))
	sb.OrderBy("confidence ASC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var items []models.ReviewItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending review items")
	}

	return items, nil
}

// UpdateStatusByID resolves a review item
func (r *Repository) UpdateStatusByID(ctx context.Context, id string, status string, resolvedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.UpdateStatusByID")
	defer span.End()

	if status != models.ReviewItemStatusApproved && status != models.ReviewItemStatusRejected {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid review status %q", status)
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("review_items")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update review item status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update review item status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review item %s not found", id))
	}

	return nil
}
