package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neline/marketplace-backend/pkg/db"
	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
)

// Repository persists transactions and their pointers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	LockByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	LockStale(ctx context.Context, kind enums.BuyerKind, cutoff time.Time, limit int) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, releasedAt *time.Time) error
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error)
	ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transactions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the transaction and then its pointers.
func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	pointers := txn.Pointers
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(txn).Error; err != nil {
		return err
	}
	if len(pointers) == 0 {
		return nil
	}
	for i := range pointers {
		pointers[i].TransactionID = txn.ID
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&pointers).Error; err != nil {
		return err
	}
	txn.Pointers = pointers
	return nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Pointers", func(db *gorm.DB) *gorm.DB { return db.Order("publication_item_id ASC") }).
		Where("payment_id = ?", paymentID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// LockByPaymentID locks the transaction row, then loads its pointers.
func (r *repository) LockByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("payment_id = ?", paymentID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	pointers, err := r.pointersFor(ctx, []uuid.UUID{txn.ID})
	if err != nil {
		return nil, err
	}
	txn.Pointers = pointers[txn.ID]
	return &txn, nil
}

// LockStale locks up to limit CREATED transactions of kind created at or
// before cutoff, oldest first. Rows already locked by a concurrent resolution are skipped.
func (r *repository) LockStale(ctx context.Context, kind enums.BuyerKind, cutoff time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND buyer_kind = ? AND created_at <= ?", enums.TransactionStatusCreated, kind, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return txns, nil
	}
	ids := make([]uuid.UUID, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
	}
	pointers, err := r.pointersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		txns[i].Pointers = pointers[txns[i].ID]
	}
	return txns, nil
}

func (r *repository) pointersFor(ctx context.Context, txnIDs []uuid.UUID) (map[uuid.UUID][]models.TransactionPointer, error) {
	var rows []models.TransactionPointer
	err := r.db.WithContext(ctx).
		Where("transaction_id IN ?", txnIDs).
		Order("publication_item_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]models.TransactionPointer, len(txnIDs))
	for _, row := range rows {
		out[row.TransactionID] = append(out[row.TransactionID], row)
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, releasedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPurchases returns the buyer's settled transactions, newest first.
func (r *repository) ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Pointers.PublicationItem.Publication").
		Where("buyer_id = ? AND status = ?", buyerID, enums.TransactionStatusSucceeded).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// ListSales returns settled pointers on publications owned by sellerID.
func (r *repository) ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error) {
	var pointers []models.TransactionPointer
	err := r.db.WithContext(ctx).
		Preload("PublicationItem.Publication").
		Joins("JOIN transactions ON transactions.id = transaction_pointers.transaction_id").
		Joins("JOIN publication_items ON publication_items.id = transaction_pointers.publication_item_id").
		Joins("JOIN publications ON publications.id = publication_items.publication_id").
		Where("publications.seller_id = ? AND transactions.status = ?", sellerID, enums.TransactionStatusSucceeded).
		Order("transaction_pointers.created_at DESC").
		Find(&pointers).Error
	if err != nil {
		return nil, err
	}
	return pointers, nil
}
