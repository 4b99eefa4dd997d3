package repo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"transaction-processor/internal/model"
)

// ErrUnavailable is returned when the persistence layer rejects or cannot
// serve a write/read. Synchronous callers translate it to a 500; the
// worker treats it as retryable.
var ErrUnavailable = errors.New("storage unavailable")

// ErrNotFound is returned for reads of absent rows.
var ErrNotFound = errors.New("not found")

// StoreInterface restricts Store methods (keeps unit-test mocks small).
type StoreInterface interface {
	CreateTransaction(ctx context.Context, t *model.Transaction) error
	UpsertProcessed(ctx context.Context, p *model.ProcessedTransaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetProcessed(ctx context.Context, id string) (*model.ProcessedTransaction, error)
}

// Store implements StoreInterface over gorm.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewStore constructs the store.
func NewStore(db *gorm.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, log: logger}
}

// DB returns underlying *gorm.DB
func (s *Store) DB(ctx context.Context) *gorm.DB { return s.db.WithContext(ctx) }

// CreateTransaction writes the raw record. Writes are idempotent by
// primary key: a client retry of the same transaction_id overwrites
// instead of failing on a duplicate insert.
func (s *Store) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			UpdateAll: true,
		}).
		Create(t).Error
	if err != nil {
		s.log.Errorf("create transaction %s: %v", t.TransactionID, err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// UpsertProcessed inserts or overwrites the processed row sharing the
// transaction's primary key. Last write wins.
func (s *Store) UpsertProcessed(ctx context.Context, p *model.ProcessedTransaction) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
	if err != nil {
		s.log.Errorf("upsert processed %s: %v", p.TransactionID, err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetTransaction fetches a raw record by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	var t model.Transaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &t, nil
}

// GetProcessed fetches a processed record by id.
func (s *Store) GetProcessed(ctx context.Context, id string) (*model.ProcessedTransaction, error) {
	var p model.ProcessedTransaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &p, nil
}
