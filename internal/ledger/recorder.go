package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
)

// RecordInput describes one balance movement to be recorded.
type RecordInput struct {
	OwnerID    uint
	AssetType  string // Defaults to GOLD
	Kind       string // BUY, SELL, WITHDRAW_CASH, WITHDRAW_PHYSICAL, ADJUSTMENT
	GoldGrams  decimal.Decimal
	FiatAmount decimal.Decimal
	FeeAmount  decimal.Decimal
	Currency   string
	Metadata   string // JSON blob, may be empty
	Status     string // Defaults to COMPLETED; WITHDRAW_PHYSICAL flows pass PENDING

	// IdempotencyKey lets retrying callers (the recurring scheduler) make
	// Record safe to repeat: a key that was already recorded returns the
	// original transaction without touching the balance again.
	IdempotencyKey string
}

// RecordResult pairs the created transaction with the wallet state it left.
type RecordResult struct {
	Transaction *domain.Transaction
	Wallet      *domain.Wallet
}

// Recorder wraps a ledger mutation and the creation of its immutable
// transaction record in one all-or-nothing database transaction.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder builds a Recorder on the given database.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record applies the balance delta implied by in.Kind and inserts the
// transaction row atomically. On any failure nothing is committed.
func (r *Recorder) Record(in RecordInput) (*RecordResult, error) {
	var out *RecordResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res, err := r.RecordIn(tx, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordIn is Record inside a caller-owned transaction, for flows that pair
// the movement with further writes (physical withdrawal fulfillment, kitty
// pot allocation) in the same atomic unit.
func (r *Recorder) RecordIn(tx *gorm.DB, in RecordInput) (*RecordResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		var existing domain.Transaction
		err := tx.Where("idempotency_key = ?", in.IdempotencyKey).First(&existing).Error
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"owner_id":        in.OwnerID,
				"idempotency_key": in.IdempotencyKey,
				"reference_code":  existing.ReferenceCode,
			}).Info("Duplicate movement suppressed by idempotency key")
			var w domain.Wallet
			if err := tx.First(&w, existing.WalletID).Error; err != nil {
				return nil, err
			}
			return &RecordResult{Transaction: &existing, Wallet: &w}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	w, err := Ensure(tx, in.OwnerID, in.AssetType)
	if err != nil {
		return nil, err
	}

	signed := in.GoldGrams
	switch in.Kind {
	case domain.KindBuy:
		w, err = Credit(tx, w.ID, in.GoldGrams)
	case domain.KindSell, domain.KindWithdrawCash, domain.KindWithdrawPhysical:
		w, err = Debit(tx, w.ID, in.GoldGrams)
		signed = in.GoldGrams.Neg()
	case domain.KindAdjustment:
		// Adjustments carry their own sign.
		if in.GoldGrams.IsPositive() {
			w, err = Credit(tx, w.ID, in.GoldGrams)
		} else {
			w, err = Debit(tx, w.ID, in.GoldGrams.Neg())
		}
	}
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	t := domain.Transaction{
		OwnerID:       in.OwnerID,
		WalletID:      w.ID,
		Kind:          in.Kind,
		Status:        status,
		GoldGrams:     signed,
		FiatAmount:    in.FiatAmount,
		FeeAmount:     in.FeeAmount,
		Currency:      in.Currency,
		ReferenceCode: NewReferenceCode(in.Kind),
		Metadata:      in.Metadata,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		t.IdempotencyKey = &key
	}
	if status == domain.StatusCompleted {
		ms := time.Now().UnixMilli()
		t.CompletedAt = &ms
	}
	if err := tx.Create(&t).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"owner_id":       in.OwnerID,
		"wallet_id":      w.ID,
		"kind":           in.Kind,
		"gold_grams":     signed.String(),
		"fiat_amount":    in.FiatAmount.String(),
		"reference_code": t.ReferenceCode,
		"status":         status,
	}).Info("Movement recorded")

	return &RecordResult{Transaction: &t, Wallet: w}, nil
}

// NewReferenceCode generates a unique human-readable reference of the form
// {KIND}-{timestamp}-{random}.
func NewReferenceCode(kind string) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", kind, time.Now().UnixMilli(), random)
}

func validateInput(in *RecordInput) error {
	if in.OwnerID == 0 {
		return apperr.BadRequest("owner id is required")
	}
	if in.AssetType == "" {
		in.AssetType = domain.AssetGold
	}
	switch in.Kind {
	case domain.KindBuy, domain.KindSell, domain.KindWithdrawCash, domain.KindWithdrawPhysical:
		if in.GoldGrams.LessThanOrEqual(decimal.Zero) {
			return apperr.BadRequest("gold amount must be positive, got %s", in.GoldGrams)
		}
	case domain.KindAdjustment:
		if in.GoldGrams.IsZero() {
			return apperr.BadRequest("adjustment amount cannot be zero")
		}
	default:
		return apperr.BadRequest("unknown transaction kind %q", in.Kind)
	}
	switch in.Status {
	case "", domain.StatusPending, domain.StatusCompleted:
	default:
		return apperr.BadRequest("transactions cannot be created in status %q", in.Status)
	}
	if in.FiatAmount.IsNegative() || in.FeeAmount.IsNegative() {
		return apperr.BadRequest("fiat and fee amounts cannot be negative")
	}
	return nil
}
