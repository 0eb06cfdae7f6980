package movement_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/ledger"
	"goldvault/internal/movement"
	"goldvault/internal/pricing"
	"goldvault/internal/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newService wires a movement service over a fresh test database with a
// single market snapshot: buy 250, sell 245.
func newService(t *testing.T) (*movement.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	oracle := pricing.NewOracle(db, nil)
	now := time.Now()
	_, err := oracle.RecordSnapshot(context.Background(), "market", dec("250"), dec("245"), "USD", &now)
	require.NoError(t, err)
	return movement.NewService(db, oracle, ledger.NewRecorder(db), nil, "USD"), db
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestBuyRequiresExactlyOneInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Buy(ctx, movement.BuyInput{OwnerID: 1})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = svc.Buy(ctx, movement.BuyInput{OwnerID: 1, Grams: ptr(dec("0.5")), FiatAmount: ptr(dec("100"))})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestBuyByGramsChargesQuotePrice(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.Buy(context.Background(), movement.BuyInput{OwnerID: 1, Grams: ptr(dec("0.5"))})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("0.5")))
	assert.True(t, res.Transaction.FiatAmount.Equal(dec("125")), "fiat = %s", res.Transaction.FiatAmount)
}

func TestBuyByGramsRejectsOffUnitAmounts(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Buy(context.Background(), movement.BuyInput{OwnerID: 1, Grams: ptr(dec("0.14"))})
	require.Error(t, err)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindInvalidQuantity, e.Kind)
	assert.True(t, e.SuggestedLower.Equal(dec("0.1")))
	assert.True(t, e.SuggestedUpper.Equal(dec("0.2")))
}

// The fiat-first path rounds grams to the nearest unit and recomputes the
// charge from the rounded grams, not the requested fiat.
func TestBuyByFiatRoundsAndRecomputesFiat(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.Buy(context.Background(), movement.BuyInput{OwnerID: 1, FiatAmount: ptr(dec("123"))})
	require.NoError(t, err)
	// 123 / 250 = 0.492 g, rounds to 0.5 g, charged 0.5 * 250 = 125.
	assert.True(t, res.Transaction.GoldGrams.Equal(dec("0.5")))
	assert.True(t, res.Transaction.FiatAmount.Equal(dec("125")))
}

func TestBuyWithoutAnyQuoteFails(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := movement.NewService(db, pricing.NewOracle(db, nil), ledger.NewRecorder(db), nil, "USD")
	_, err := svc.Buy(context.Background(), movement.BuyInput{OwnerID: 1, Grams: ptr(dec("0.5"))})
	assert.Equal(t, apperr.KindNoQuote, apperr.KindOf(err))
}

func TestSellUsesSellPriceAndAllowsSubUnitAmounts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Buy(ctx, movement.BuyInput{OwnerID: 1, Grams: ptr(dec("1"))})
	require.NoError(t, err)

	// 0.25 g is not a 0.1 g multiple; sells accept it anyway.
	res, err := svc.Sell(ctx, movement.SellInput{OwnerID: 1, Grams: dec("0.25")})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("0.75")))
	assert.True(t, res.Transaction.FiatAmount.Equal(dec("61.25")), "fiat = %s", res.Transaction.FiatAmount)
}

func TestSellRejectsDustAndOverdraft(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Sell(ctx, movement.SellInput{OwnerID: 1, Grams: dec("0.000000001")})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = svc.Sell(ctx, movement.SellInput{OwnerID: 1, Grams: dec("0.5")})
	assert.Equal(t, apperr.KindInsufficientBalance, apperr.KindOf(err))
}

func TestWithdrawCashDebitsWithoutQuantizer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Buy(ctx, movement.BuyInput{OwnerID: 1, Grams: ptr(dec("1"))})
	require.NoError(t, err)

	res, err := svc.WithdrawCash(ctx, movement.WithdrawCashInput{
		OwnerID: 1, Grams: dec("0.33"), FiatAmount: dec("80"),
	})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("0.67")))
	assert.True(t, res.Transaction.GoldGrams.Equal(dec("-0.33")))
}

func TestWithdrawPhysicalLifecycle(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	_, err := svc.Buy(ctx, movement.BuyInput{OwnerID: 1, Grams: ptr(dec("25"))})
	require.NoError(t, err)

	res, err := svc.WithdrawPhysical(ctx, movement.WithdrawPhysicalInput{
		OwnerID:        1,
		CoinSize:       movement.Coin10g,
		Quantity:       2,
		DeliveryMethod: domain.DeliveryHome,
		Address:        &movement.Address{Line: "1 Main St", City: "Springfield", PostalCode: "49007"},
		RecipientName:  "Pat Doe",
		RecipientPhone: "+15550100",
	})
	require.NoError(t, err)
	// 20 g left the balance immediately, transaction stays pending.
	assert.True(t, res.Wallet.Balance.Equal(dec("5")))
	assert.Equal(t, domain.StatusPending, res.Transaction.Status)
	assert.Equal(t, domain.DeliveryHome, res.Fulfillment.DeliveryMethod)

	done, err := svc.CompletePhysical(ctx, res.Transaction.ID, "TRACK-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	var f domain.WithdrawalFulfillment
	require.NoError(t, db.Where("transaction_id = ?", res.Transaction.ID).First(&f).Error)
	assert.Equal(t, "TRACK-123", f.TrackingNumber)
	require.NotNil(t, f.DeliveredAt)

	// Completing twice is a conflict.
	_, err = svc.CompletePhysical(ctx, res.Transaction.ID, "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestWithdrawPhysicalValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   movement.WithdrawPhysicalInput
	}{
		{"unknown coin", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: "3g", Quantity: 1, DeliveryMethod: domain.DeliveryVaultPickup, LocationCode: "V1", RecipientName: "a", RecipientPhone: "b"}},
		{"zero quantity", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: movement.Coin1g, Quantity: 0, DeliveryMethod: domain.DeliveryVaultPickup, LocationCode: "V1", RecipientName: "a", RecipientPhone: "b"}},
		{"over 1000g total", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: movement.Coin100g, Quantity: 11, DeliveryMethod: domain.DeliveryVaultPickup, LocationCode: "V1", RecipientName: "a", RecipientPhone: "b"}},
		{"home without address", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: movement.Coin1g, Quantity: 1, DeliveryMethod: domain.DeliveryHome, RecipientName: "a", RecipientPhone: "b"}},
		{"pickup without location", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: movement.Coin1g, Quantity: 1, DeliveryMethod: domain.DeliveryPartnerPickup, RecipientName: "a", RecipientPhone: "b"}},
		{"bad method", movement.WithdrawPhysicalInput{OwnerID: 1, CoinSize: movement.Coin1g, Quantity: 1, DeliveryMethod: "drone", RecipientName: "a", RecipientPhone: "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.WithdrawPhysical(ctx, tc.in)
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		})
	}
}
