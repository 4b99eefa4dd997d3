package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the raw record as accepted by the submission endpoint.
type Transaction struct {
	TransactionID string          `gorm:"primaryKey;size:64" json:"transaction_id"`
	UserID        string          `gorm:"index;size:64" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	Currency      string          `gorm:"size:8;not null" json:"currency"`
	Timestamp     time.Time       `gorm:"not null" json:"timestamp"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }

// ProcessedTransaction is the worker-owned derived record. It shares the
// raw transaction's primary key, so reprocessing the same transaction
// overwrites rather than duplicates.
type ProcessedTransaction struct {
	TransactionID   string          `gorm:"primaryKey;size:64" json:"transaction_id"`
	UserID          string          `gorm:"index;size:64" json:"user_id"`
	ConvertedAmount decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"converted_amount"`
	Currency        string          `gorm:"size:8;not null" json:"currency"`
	Timestamp       time.Time       `gorm:"not null" json:"timestamp"`
	ProcessedAt     time.Time       `gorm:"autoUpdateTime" json:"processed_at"`
}

func (ProcessedTransaction) TableName() string { return "processed_transactions" }
