// Package movement implements the user-facing balance movements: Buy, Sell,
// WithdrawCash and WithdrawPhysical. Each flow resolves the effective price,
// computes gram/fiat amounts with the quantizer where the flow requires it,
// and delegates the atomic write to the ledger recorder.
package movement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/ledger"
	"goldvault/internal/metrics"
	"goldvault/internal/pricing"
	"goldvault/internal/quantize"
	"goldvault/internal/utils"
)

// minSellGrams is the smallest sellable amount. Sells are intentionally not
// constrained to the 0.1 g unit: holdings were quantized on the way in, and
// unit-forcing exits would strand sub-unit remainders.
var minSellGrams = decimal.New(1, -8)

// Service executes movement flows against the ledger.
type Service struct {
	db       *gorm.DB
	oracle   *pricing.Oracle
	recorder *ledger.Recorder
	rdb      *redis.Client // Optional; nil disables cache invalidation
	currency string        // Currency recorded for flows without a quote, e.g. cash-out
}

// NewService builds a movement Service. rdb may be nil.
func NewService(db *gorm.DB, oracle *pricing.Oracle, recorder *ledger.Recorder, rdb *redis.Client, currency string) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{db: db, oracle: oracle, recorder: recorder, rdb: rdb, currency: currency}
}

// BuyInput is a purchase request. Exactly one of Grams or FiatAmount must be
// set: grams-first orders are validated strictly against the 0.1 g unit,
// fiat-first orders are rounded to the nearest unit.
type BuyInput struct {
	OwnerID        uint
	Grams          *decimal.Decimal
	FiatAmount     *decimal.Decimal
	IdempotencyKey string
}

// Buy purchases gold at the effective buy price.
func (s *Service) Buy(ctx context.Context, in BuyInput) (*ledger.RecordResult, error) {
	if (in.Grams == nil) == (in.FiatAmount == nil) {
		return nil, apperr.BadRequest("provide exactly one of grams or fiat_amount")
	}
	quote, err := s.oracle.EffectiveQuote(ctx)
	if err != nil {
		return nil, err
	}

	var grams decimal.Decimal
	if in.Grams != nil {
		grams = *in.Grams
		if err := quantize.Validate(grams); err != nil {
			return nil, err
		}
	} else {
		grams, err = quantize.FiatToGrams(*in.FiatAmount, quote.BuyPrice)
		if err != nil {
			return nil, err
		}
	}
	// The fiat charged always derives from the final grams, so the rounded
	// fiat-first path never charges the raw requested amount.
	fiat := grams.Mul(quote.BuyPrice)

	res, err := s.recorder.Record(ledger.RecordInput{
		OwnerID:        in.OwnerID,
		Kind:           domain.KindBuy,
		GoldGrams:      grams,
		FiatAmount:     fiat,
		Currency:       quote.Currency,
		Metadata:       quoteMetadata(quote, "buy"),
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		metrics.MovementsTotal.WithLabelValues(domain.KindBuy, "failed").Inc()
		return nil, err
	}
	metrics.MovementsTotal.WithLabelValues(domain.KindBuy, "ok").Inc()
	s.invalidateWalletCache(ctx, in.OwnerID)
	return res, nil
}

// SellInput is a sale request.
type SellInput struct {
	OwnerID uint
	Grams   decimal.Decimal
}

// Sell sells gold at the effective sell price.
func (s *Service) Sell(ctx context.Context, in SellInput) (*ledger.RecordResult, error) {
	if in.Grams.LessThan(minSellGrams) {
		return nil, apperr.BadRequest("sell amount must be at least %s g, got %s g", minSellGrams, in.Grams)
	}
	quote, err := s.oracle.EffectiveQuote(ctx)
	if err != nil {
		return nil, err
	}
	fiat := in.Grams.Mul(quote.SellPrice)

	res, err := s.recorder.Record(ledger.RecordInput{
		OwnerID:    in.OwnerID,
		Kind:       domain.KindSell,
		GoldGrams:  in.Grams,
		FiatAmount: fiat,
		Currency:   quote.Currency,
		Metadata:   quoteMetadata(quote, "sell"),
	})
	if err != nil {
		metrics.MovementsTotal.WithLabelValues(domain.KindSell, "failed").Inc()
		return nil, err
	}
	metrics.MovementsTotal.WithLabelValues(domain.KindSell, "ok").Inc()
	s.invalidateWalletCache(ctx, in.OwnerID)
	return res, nil
}

// WithdrawCashInput is a cash-out request. The fiat valuation is agreed
// out-of-band, so the flow records it as given and applies no quantizer.
type WithdrawCashInput struct {
	OwnerID    uint
	Grams      decimal.Decimal
	FiatAmount decimal.Decimal
}

// WithdrawCash debits grams and records the fiat payout obligation.
func (s *Service) WithdrawCash(ctx context.Context, in WithdrawCashInput) (*ledger.RecordResult, error) {
	if in.Grams.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BadRequest("withdrawal amount must be positive, got %s g", in.Grams)
	}
	if in.FiatAmount.IsNegative() {
		return nil, apperr.BadRequest("fiat amount cannot be negative")
	}
	res, err := s.recorder.Record(ledger.RecordInput{
		OwnerID:    in.OwnerID,
		Kind:       domain.KindWithdrawCash,
		GoldGrams:  in.Grams,
		FiatAmount: in.FiatAmount,
		Currency:   s.currency,
	})
	if err != nil {
		metrics.MovementsTotal.WithLabelValues(domain.KindWithdrawCash, "failed").Inc()
		return nil, err
	}
	metrics.MovementsTotal.WithLabelValues(domain.KindWithdrawCash, "ok").Inc()
	s.invalidateWalletCache(ctx, in.OwnerID)
	return res, nil
}

// invalidateWalletCache drops the cached wallet view after a movement, the
// same invalidation the wallet read endpoint relies on.
func (s *Service) invalidateWalletCache(ctx context.Context, ownerID uint) {
	if s.rdb == nil {
		return
	}
	if err := utils.DeleteCache(ctx, s.rdb, utils.WalletCacheKey(ownerID)); err != nil {
		logrus.WithFields(logrus.Fields{
			"owner_id": ownerID,
			"error":    err.Error(),
		}).Warn("Failed to invalidate wallet cache")
	}
}

func quoteMetadata(q pricing.Quote, side string) string {
	price := q.BuyPrice
	if side == "sell" {
		price = q.SellPrice
	}
	b, _ := json.Marshal(map[string]any{
		"price_source":   q.Source,
		"price_per_gram": price.String(),
		"is_override":    q.IsOverride,
		"quoted_at":      q.EffectiveAt.Format(time.RFC3339),
	})
	return string(b)
}
