package mirror

import (
	"context"

	"example.com/backstage/services/doctor/internal/mapper"
	"example.com/backstage/services/doctor/internal/models"
	"example.com/backstage/services/doctor/internal/paging"
)

// RecordStore is the durable primary store for entities E
type RecordStore[E any] interface {
	Create(ctx context.Context, record *E) error
	Update(ctx context.Context, id int64, record *E) error
	FindByID(ctx context.Context, id int64) (*E, error)
	FindPage(ctx context.Context, req paging.PageRequest) ([]E, int64, error)
	Delete(ctx context.Context, id int64) error
	FindBatch(ctx context.Context, afterID int64, limit int) ([]E, error)
	Count(ctx context.Context) (int64, error)
}

// SearchIndex is the derived full-text projection of entities E
type SearchIndex[E any] interface {
	Upsert(ctx context.Context, id int64, doc *E) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, page paging.PageRequest) ([]E, int64, error)
	DeleteAll(ctx context.Context) error
}

// Cache is an optional read cache in front of the record store
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// FailureLog keeps index writes that still failed after retries
type FailureLog interface {
	Record(ctx context.Context, failure *models.IndexFailure) error
	FindUnresolved(ctx context.Context, entity string, limit int) ([]models.IndexFailure, error)
	MarkResolved(ctx context.Context, id uint) error
	IncrementAttempts(ctx context.Context, id uint, lastErr string) error
}

// Descriptor tells a Coordinator how to handle one entity type
type Descriptor[D any, E any] struct {
	// Name keys the index, cache entries and dead letters, e.g. "reply"
	Name string
	// EntityName is reported in alerts and errors, e.g. "doctorReply"
	EntityName string
	// Label is used in human readable messages
	Label string
	// SortFields maps sortable API fields to store columns
	SortFields map[string]string
	// SearchSortFields maps API fields to sortable index fields. Text fields
	// sort on their keyword sub-field.
	SearchSortFields map[string]string

	Mapper mapper.EntityMapper[D, E]
	ID     func(*E) int64
	DTOID  func(*D) *int64
}

// column returns the store column for an API field
func (d Descriptor[D, E]) column(field string) (string, bool) {
	if field == "id" {
		return "id", true
	}
	col, ok := d.SortFields[field]
	return col, ok
}

// searchField returns the sortable index field for an API field
func (d Descriptor[D, E]) searchField(field string) (string, bool) {
	if field == "id" {
		return "id", true
	}
	f, ok := d.SearchSortFields[field]
	return f, ok
}
