package movement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/ledger"
	"goldvault/internal/metrics"
)

// Coin denominations available for physical withdrawal.
const (
	Coin1g   = "1g"
	Coin2g   = "2g"
	Coin5g   = "5g"
	Coin10g  = "10g"
	Coin20g  = "20g"
	Coin50g  = "50g"
	Coin100g = "100g"
)

// coinGrams maps a coin size to its weight.
var coinGrams = map[string]decimal.Decimal{
	Coin1g:   decimal.NewFromInt(1),
	Coin2g:   decimal.NewFromInt(2),
	Coin5g:   decimal.NewFromInt(5),
	Coin10g:  decimal.NewFromInt(10),
	Coin20g:  decimal.NewFromInt(20),
	Coin50g:  decimal.NewFromInt(50),
	Coin100g: decimal.NewFromInt(100),
}

// Per-request bounds on a physical withdrawal.
var (
	maxPhysicalUnits = 100
	minPhysicalGrams = decimal.NewFromInt(1)
	maxPhysicalGrams = decimal.NewFromInt(1000)
)

// Address is the structured delivery address required for home delivery.
type Address struct {
	Line       string `json:"line"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// WithdrawPhysicalInput is a request for physical delivery of coins.
type WithdrawPhysicalInput struct {
	OwnerID        uint
	CoinSize       string
	Quantity       int
	DeliveryMethod string   // home, partner_pickup, vault_pickup
	Address        *Address // Required for home delivery
	LocationCode   string   // Required for pickup methods
	RecipientName  string
	RecipientPhone string
}

// WithdrawPhysicalResult pairs the pending transaction with its fulfillment
// record.
type WithdrawPhysicalResult struct {
	Transaction *domain.Transaction
	Wallet      *domain.Wallet
	Fulfillment *domain.WithdrawalFulfillment
}

// WithdrawPhysical debits the total coin weight immediately and opens a
// PENDING transaction plus a fulfillment record for the logistics side.
// The transaction completes only through CompletePhysical.
func (s *Service) WithdrawPhysical(ctx context.Context, in WithdrawPhysicalInput) (*WithdrawPhysicalResult, error) {
	grams, err := validatePhysical(&in)
	if err != nil {
		return nil, err
	}
	quote, err := s.oracle.EffectiveQuote(ctx)
	if err != nil {
		return nil, err
	}
	fiat := grams.Mul(quote.SellPrice)

	var out WithdrawPhysicalResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.recorder.RecordIn(tx, ledger.RecordInput{
			OwnerID:    in.OwnerID,
			Kind:       domain.KindWithdrawPhysical,
			GoldGrams:  grams,
			FiatAmount: fiat,
			Currency:   quote.Currency,
			Status:     domain.StatusPending,
			Metadata:   physicalMetadata(in, grams),
		})
		if err != nil {
			return err
		}
		f := domain.WithdrawalFulfillment{
			TransactionID:  res.Transaction.ID,
			CoinSize:       in.CoinSize,
			Quantity:       in.Quantity,
			DeliveryMethod: in.DeliveryMethod,
			LocationCode:   in.LocationCode,
			RecipientName:  in.RecipientName,
			RecipientPhone: in.RecipientPhone,
		}
		if in.Address != nil {
			f.AddressLine = in.Address.Line
			f.City = in.Address.City
			f.PostalCode = in.Address.PostalCode
		}
		if err := tx.Create(&f).Error; err != nil {
			return err
		}
		out = WithdrawPhysicalResult{Transaction: res.Transaction, Wallet: res.Wallet, Fulfillment: &f}
		return nil
	})
	if err != nil {
		metrics.MovementsTotal.WithLabelValues(domain.KindWithdrawPhysical, "failed").Inc()
		return nil, err
	}
	metrics.MovementsTotal.WithLabelValues(domain.KindWithdrawPhysical, "ok").Inc()
	s.invalidateWalletCache(ctx, in.OwnerID)

	logrus.WithFields(logrus.Fields{
		"owner_id":        in.OwnerID,
		"coin_size":       in.CoinSize,
		"quantity":        in.Quantity,
		"delivery_method": in.DeliveryMethod,
		"gold_grams":      grams.String(),
	}).Info("Physical withdrawal opened")
	return &out, nil
}

// CompletePhysical is the admin-triggered transition PENDING -> COMPLETED
// once delivery is confirmed. trackingNumber may be empty for pickups.
func (s *Service) CompletePhysical(ctx context.Context, transactionID uint, trackingNumber string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, transactionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("transaction %d not found", transactionID)
			}
			return err
		}
		if t.Kind != domain.KindWithdrawPhysical {
			return apperr.Conflict("transaction %s is not a physical withdrawal", t.ReferenceCode)
		}
		if t.Status != domain.StatusPending {
			return apperr.Conflict("transaction %s is %s, only PENDING withdrawals can be completed", t.ReferenceCode, t.Status)
		}

		now := time.Now().UnixMilli()
		t.Status = domain.StatusCompleted
		t.CompletedAt = &now
		if err := tx.Model(&domain.Transaction{}).Where("id = ?", t.ID).
			Updates(map[string]any{"status": t.Status, "completed_at": now}).Error; err != nil {
			return err
		}

		updates := map[string]any{"delivered_at": now}
		if trackingNumber != "" {
			updates["tracking_number"] = trackingNumber
		}
		return tx.Model(&domain.WithdrawalFulfillment{}).
			Where("transaction_id = ?", t.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"reference_code": t.ReferenceCode,
	}).Info("Physical withdrawal completed")
	return &t, nil
}

func validatePhysical(in *WithdrawPhysicalInput) (decimal.Decimal, error) {
	unit, ok := coinGrams[in.CoinSize]
	if !ok {
		return decimal.Zero, apperr.BadRequest("unknown coin size %q", in.CoinSize)
	}
	if in.Quantity < 1 || in.Quantity > maxPhysicalUnits {
		return decimal.Zero, apperr.BadRequest("quantity must be between 1 and %d, got %d", maxPhysicalUnits, in.Quantity)
	}
	grams := unit.Mul(decimal.NewFromInt(int64(in.Quantity)))
	if grams.LessThan(minPhysicalGrams) || grams.GreaterThan(maxPhysicalGrams) {
		return decimal.Zero, apperr.BadRequest("total weight must be between %s g and %s g, got %s g",
			minPhysicalGrams, maxPhysicalGrams, grams)
	}
	if in.RecipientName == "" || in.RecipientPhone == "" {
		return decimal.Zero, apperr.BadRequest("recipient name and phone are required")
	}
	switch in.DeliveryMethod {
	case domain.DeliveryHome:
		if in.Address == nil || in.Address.Line == "" || in.Address.City == "" || in.Address.PostalCode == "" {
			return decimal.Zero, apperr.BadRequest("home delivery requires a full address (line, city, postal code)")
		}
	case domain.DeliveryPartnerPickup, domain.DeliveryVaultPickup:
		if in.LocationCode == "" {
			return decimal.Zero, apperr.BadRequest("%s delivery requires a location code", in.DeliveryMethod)
		}
	default:
		return decimal.Zero, apperr.BadRequest("unknown delivery method %q", in.DeliveryMethod)
	}
	return grams, nil
}

func physicalMetadata(in WithdrawPhysicalInput, grams decimal.Decimal) string {
	b, _ := json.Marshal(map[string]any{
		"coin_size":       in.CoinSize,
		"quantity":        in.Quantity,
		"total_grams":     grams.String(),
		"delivery_method": in.DeliveryMethod,
	})
	return string(b)
}
