package graph

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

// Store bundles the entity and relationship services into the single write
// path the resolution engine owns.
type Store struct {
	entities      *EntityService
	relationships *RelationshipService
}

// NewStore creates the store access layer over a graph client
func NewStore(client *Client, logger ectologger.Logger) *Store {
	return &Store{
		entities:      NewEntityService(client, logger),
		relationships: NewRelationshipService(client, logger),
	}
}

func (s *Store) EnsureEntity(ctx context.Context, name string, aliases []string) error {
	return s.entities.Ensure(ctx, name, aliases)
}

func (s *Store) Lookup(ctx context.Context, key models.RelationshipKey) (*models.RelationshipRecord, error) {
	return s.relationships.Lookup(ctx, key)
}

func (s *Store) Upsert(ctx context.Context, record *models.RelationshipRecord) error {
	return s.relationships.Upsert(ctx, record)
}
