package worker

import (
	"context"

	"go.uber.org/zap"

	"transaction-processor/internal/model"
	"transaction-processor/internal/rates"
	"transaction-processor/internal/repo"
)

// resultStatus is the message recorded on a successful conversion.
const resultStatus = "Transaction processed"

// Processor performs one transaction's currency conversion: look up the
// rate with the transaction's currency as base, multiply at full decimal
// precision and upsert the processed row. Upserting by transaction_id
// makes the whole step idempotent, so queue redelivery or a duplicate
// submission converges on a single row.
type Processor struct {
	store repo.StoreInterface
	rates rates.Source
	// target is the currency code written on processed rows
	target string
	log    *zap.SugaredLogger
}

// NewProcessor wires the conversion handler.
func NewProcessor(store repo.StoreInterface, src rates.Source, targetCurrency string, logger *zap.SugaredLogger) *Processor {
	return &Processor{store: store, rates: src, target: targetCurrency, log: logger}
}

// Process is the handler registered for KindConvertTransaction. Both the
// rate call and the store write complete before it returns, so the caller
// only records a terminal state for fully finished work. No processed row
// is ever written on a failed lookup.
func (p *Processor) Process(ctx context.Context, payload model.TaskPayload) (*model.TaskResult, error) {
	rate, err := p.rates.GetRate(ctx, payload.Currency)
	if err != nil {
		return nil, err
	}

	converted := payload.Amount.Mul(rate)
	processed := &model.ProcessedTransaction{
		TransactionID:   payload.TransactionID,
		UserID:          payload.UserID,
		ConvertedAmount: converted,
		Currency:        p.target,
		Timestamp:       payload.Timestamp,
	}
	if err := p.store.UpsertProcessed(ctx, processed); err != nil {
		return nil, err
	}

	p.log.Infof("processed %s: %s %s -> %s %s",
		payload.TransactionID, payload.Amount, payload.Currency, converted, p.target)
	return &model.TaskResult{
		Status:        resultStatus,
		TransactionID: payload.TransactionID,
	}, nil
}
