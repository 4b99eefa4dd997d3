package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"transaction-processor/internal/logger"
	"transaction-processor/internal/model"
	"transaction-processor/internal/rates"
	"transaction-processor/internal/repo"
)

type stubRates struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *stubRates) GetRate(context.Context, string) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

func newTestProcessor(t *testing.T, src *stubRates) (*Processor, *repo.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Transaction{}, &model.ProcessedTransaction{}))
	log, _ := logger.NewLogger()
	store := repo.NewStore(db, log)
	return NewProcessor(store, src, "EUR", log), store
}

func payloadT1() model.TaskPayload {
	return model.TaskPayload{
		TransactionID: "T1",
		UserID:        "U1",
		Amount:        decimal.RequireFromString("100.0"),
		Currency:      "USD",
		Timestamp:     time.Date(2024, 8, 31, 12, 34, 56, 0, time.UTC),
	}
}

func TestProcess_ConvertsAtFullPrecision(t *testing.T) {
	p, store := newTestProcessor(t, &stubRates{rate: decimal.RequireFromString("0.92")})

	res, err := p.Process(context.Background(), payloadT1())
	assert.NoError(t, err)
	assert.Equal(t, "Transaction processed", res.Status)
	assert.Equal(t, "T1", res.TransactionID)

	got, err := store.GetProcessed(context.Background(), "T1")
	assert.NoError(t, err)
	assert.True(t, got.ConvertedAmount.Equal(decimal.NewFromInt(92)), "got %s", got.ConvertedAmount)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "U1", got.UserID)
	assert.True(t, got.Timestamp.Equal(payloadT1().Timestamp))
}

func TestProcess_RateFailureWritesNothing(t *testing.T) {
	p, store := newTestProcessor(t, &stubRates{err: fmt.Errorf("%w: provider returned 502", rates.ErrUnavailable)})

	_, err := p.Process(context.Background(), payloadT1())
	assert.ErrorIs(t, err, rates.ErrUnavailable)

	_, err = store.GetProcessed(context.Background(), "T1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProcess_IdempotentByTransactionID(t *testing.T) {
	p, store := newTestProcessor(t, &stubRates{rate: decimal.RequireFromString("0.92")})

	_, err := p.Process(context.Background(), payloadT1())
	assert.NoError(t, err)
	// redelivery of the same transaction converges on one row
	_, err = p.Process(context.Background(), payloadT1())
	assert.NoError(t, err)

	var count int64
	store.DB(context.Background()).Model(&model.ProcessedTransaction{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
