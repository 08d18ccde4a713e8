package inventory

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/pkg/db"
	"github.com/neline/marketplace-backend/pkg/db/models"
)

// Repository exposes the locked batch access to inventory lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockLines(ctx context.Context, ids []uuid.UUID) (Lines, error)
	SaveCounters(ctx context.Context, lines Lines) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockLines takes FOR UPDATE locks on the requested lines in ascending id
// order and loads their publications. Missing ids are simply absent from the
// result.
func (r *repository) LockLines(ctx context.Context, ids []uuid.UUID) (Lines, error) {
	ids = SortedUnique(ids)
	if len(ids) == 0 {
		return Lines{}, nil
	}

	var rows []models.PublicationItem
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lock publication items: %w", err)
	}

	pubIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		pubIDs = append(pubIDs, row.PublicationID)
	}
	var pubs []models.Publication
	if len(pubIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", SortedUnique(pubIDs)).Find(&pubs).Error; err != nil {
			return nil, fmt.Errorf("load publications: %w", err)
		}
	}
	pubByID := make(map[uuid.UUID]*models.Publication, len(pubs))
	for i := range pubs {
		pubByID[pubs[i].ID] = &pubs[i]
	}

	lines := make(Lines, len(rows))
	for i := range rows {
		row := rows[i]
		row.Publication = pubByID[row.PublicationID]
		lines[row.ID] = &row
	}
	return lines, nil
}

// SaveCounters persists amount and reserved for every line in id order.
func (r *repository) SaveCounters(ctx context.Context, lines Lines) error {
	for _, id := range lines.IDs() {
		line := lines[id]
		res := r.db.WithContext(ctx).
			Model(&models.PublicationItem{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"amount":   line.Amount,
				"reserved": line.Reserved,
			})
		if res.Error != nil {
			return fmt.Errorf("save publication item %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("save publication item %s: %w", id, gorm.ErrRecordNotFound)
		}
	}
	return nil
}

// Lines indexes locked inventory lines by id.
type Lines map[uuid.UUID]*models.PublicationItem

// IDs returns the line ids in lock order.
func (l Lines) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	return SortedUnique(ids)
}

// SortedUnique returns the distinct ids in ascending byte order, which is the
// order Postgres sorts uuid columns in.
func SortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
