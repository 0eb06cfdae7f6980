// Package pricing resolves the currently effective buy/sell gold price.
// Prices are externally supplied: market snapshots are appended by a feed,
// overrides are appended by admins. An active override always beats the
// market; among overrides the most recently created wins.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/utils"
)

// SourceOverride is the quote source reported for admin overrides.
const SourceOverride = "override"

const (
	quoteCacheKey = "price:quote:effective" // Redis key for the cached quote
	quoteCacheTTL = 60 * time.Second        // Same TTL the wallet cache uses
)

// Quote is the resolved effective price pair.
type Quote struct {
	Source         string          `json:"source"`          // Feed name or "override"
	BuyPrice       decimal.Decimal `json:"buy_price"`       // Price per gram users buy at
	SellPrice      decimal.Decimal `json:"sell_price"`      // Price per gram users sell at
	Currency       string          `json:"currency"`        // Fiat currency code
	EffectiveAt    time.Time       `json:"effective_at"`    // When the price took effect
	IsOverride     bool            `json:"is_override"`     // True when an admin override is active
	OverrideReason string          `json:"override_reason"` // Reason given by the admin, if any
}

// Oracle resolves quotes from the append-only snapshot and override tables.
type Oracle struct {
	db  *gorm.DB
	rdb *redis.Client // Optional; nil disables quote caching
	now func() time.Time
}

// NewOracle builds an Oracle. rdb may be nil to disable caching.
func NewOracle(db *gorm.DB, rdb *redis.Client) *Oracle {
	return &Oracle{db: db, rdb: rdb, now: time.Now}
}

// EffectiveQuote returns the price currently in force: the most recent
// unexpired override if one exists, otherwise the latest market snapshot.
// Fails with NoQuoteAvailable when neither exists.
func (o *Oracle) EffectiveQuote(ctx context.Context) (Quote, error) {
	var q Quote
	if o.rdb != nil {
		if found, err := utils.GetCache(ctx, o.rdb, quoteCacheKey, &q); err == nil && found {
			return q, nil
		}
	}

	nowMilli := o.now().UnixMilli()
	var ov domain.PriceOverride
	err := o.db.WithContext(ctx).
		Where("expires_at IS NULL OR expires_at > ?", nowMilli).
		Order("created_at DESC").Order("id DESC").
		First(&ov).Error
	switch {
	case err == nil:
		q = Quote{
			Source:         SourceOverride,
			BuyPrice:       ov.BuyPrice,
			SellPrice:      ov.SellPrice,
			Currency:       ov.Currency,
			EffectiveAt:    time.UnixMilli(ov.CreatedAt),
			IsOverride:     true,
			OverrideReason: ov.Reason,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		var snap domain.PriceSnapshot
		err = o.db.WithContext(ctx).
			Order("effective_at DESC").Order("id DESC").
			First(&snap).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, apperr.New(apperr.KindNoQuote, "no gold price available: no active override and no market snapshot")
		}
		if err != nil {
			return Quote{}, err
		}
		q = Quote{
			Source:      snap.Source,
			BuyPrice:    snap.BuyPrice,
			SellPrice:   snap.SellPrice,
			Currency:    snap.Currency,
			EffectiveAt: time.UnixMilli(snap.EffectiveAt),
		}
	default:
		return Quote{}, err
	}

	if o.rdb != nil {
		_ = utils.SetCache(ctx, o.rdb, quoteCacheKey, q, quoteCacheTTL)
	}
	return q, nil
}

// RecordSnapshot appends a market price snapshot. effectiveAt defaults to now.
func (o *Oracle) RecordSnapshot(ctx context.Context, source string, buy, sell decimal.Decimal, currency string, effectiveAt *time.Time) (*domain.PriceSnapshot, error) {
	if err := validatePrices(buy, sell); err != nil {
		return nil, err
	}
	if source == "" {
		return nil, apperr.BadRequest("snapshot source is required")
	}
	at := o.now()
	if effectiveAt != nil {
		at = *effectiveAt
	}
	snap := domain.PriceSnapshot{
		Source:      source,
		BuyPrice:    buy,
		SellPrice:   sell,
		Currency:    currency,
		EffectiveAt: at.UnixMilli(),
	}
	if err := o.db.WithContext(ctx).Create(&snap).Error; err != nil {
		return nil, err
	}
	o.invalidate(ctx)
	return &snap, nil
}

// AddOverride appends an admin price override. Prior overrides are never
// mutated; the new row supersedes them by recency.
func (o *Oracle) AddOverride(ctx context.Context, adminID uint, buy, sell decimal.Decimal, currency, reason string, expiresAt *time.Time) (*domain.PriceOverride, error) {
	if err := validatePrices(buy, sell); err != nil {
		return nil, err
	}
	ov := domain.PriceOverride{
		AdminID:   adminID,
		BuyPrice:  buy,
		SellPrice: sell,
		Currency:  currency,
		Reason:    reason,
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		ov.ExpiresAt = &ms
	}
	if err := o.db.WithContext(ctx).Create(&ov).Error; err != nil {
		return nil, err
	}
	o.invalidate(ctx)
	return &ov, nil
}

func (o *Oracle) invalidate(ctx context.Context) {
	if o.rdb != nil {
		_ = utils.DeleteCache(ctx, o.rdb, quoteCacheKey)
	}
}

func validatePrices(buy, sell decimal.Decimal) error {
	if buy.LessThanOrEqual(decimal.Zero) || sell.LessThanOrEqual(decimal.Zero) {
		return apperr.BadRequest("buy and sell prices must be positive")
	}
	return nil
}
