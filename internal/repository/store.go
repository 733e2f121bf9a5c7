package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/doctor/internal/paging"
)

// GormStore is the record store for one entity model M. Every model keeps
// its primary key in an "id" column.
type GormStore[M any] struct {
	db *gorm.DB
}

// NewGormStore creates a record store for M
func NewGormStore[M any](db *gorm.DB) *GormStore[M] {
	return &GormStore[M]{db: db}
}

// Create inserts a new record and fills in its id
func (s *GormStore[M]) Create(ctx context.Context, record *M) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(ErrCreateFailed, err.Error())
	}
	return nil
}

// Update replaces the record with the given id, ErrNotFound when absent.
// It is a single UPDATE matched on id, so a concurrently deleted row is
// never inserted again.
func (s *GormStore[M]) Update(ctx context.Context, id int64, record *M) error {
	res := s.db.WithContext(ctx).
		Model(new(M)).
		Where("id = ?", id).
		Select("*").
		Omit("id").
		Updates(record)
	if res.Error != nil {
		return errors.Wrap(ErrUpdateFailed, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID returns the record with the given id, ErrNotFound when absent
func (s *GormStore[M]) FindByID(ctx context.Context, id int64) (*M, error) {
	var record M
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find record")
	}
	return &record, nil
}

// FindPage returns one page of records ordered by the requested columns,
// ties broken by ascending id, and the total number of records. Sort
// fields must already be column names.
func (s *GormStore[M]) FindPage(ctx context.Context, req paging.PageRequest) ([]M, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(new(M)).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count records")
	}

	query := s.db.WithContext(ctx).Model(new(M))
	for _, order := range orderColumns(req.Sort) {
		query = query.Order(order)
	}

	var records []M
	if err := query.Offset(req.Offset()).Limit(req.Size).Find(&records).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to list records")
	}
	return records, total, nil
}

func orderColumns(sort []paging.SortOrder) []clause.OrderByColumn {
	orders := make([]clause.OrderByColumn, 0, len(sort)+1)
	hasID := false
	for _, s := range sort {
		if s.Field == "id" {
			hasID = true
		}
		orders = append(orders, clause.OrderByColumn{
			Column: clause.Column{Name: s.Field},
			Desc:   s.Desc(),
		})
	}
	if !hasID {
		orders = append(orders, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return orders
}

// Delete removes the record with the given id. Deleting an absent id is
// not an error.
func (s *GormStore[M]) Delete(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(new(M), id).Error; err != nil {
		return errors.Wrap(ErrDeleteFailed, err.Error())
	}
	return nil
}

// FindBatch returns up to limit records with an id greater than afterID,
// in id order
func (s *GormStore[M]) FindBatch(ctx context.Context, afterID int64, limit int) ([]M, error) {
	var records []M
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to read batch")
	}
	return records, nil
}

// Count returns the number of records
func (s *GormStore[M]) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(new(M)).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count records")
	}
	return total, nil
}
