package ledger_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/ledger"
	"goldvault/internal/testutil"
)

func TestRecordBuyCreditsWalletAndWritesTransaction(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	res, err := rec.Record(ledger.RecordInput{
		OwnerID:    1,
		Kind:       domain.KindBuy,
		GoldGrams:  dec("0.5"),
		FiatAmount: dec("125"),
		Currency:   "USD",
	})
	require.NoError(t, err)

	assert.True(t, res.Wallet.Balance.Equal(dec("0.5")))
	tx := res.Transaction
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.True(t, tx.GoldGrams.Equal(dec("0.5")), "buy records positive grams")
	assert.True(t, strings.HasPrefix(tx.ReferenceCode, "BUY-"))
	require.NotNil(t, tx.CompletedAt)
}

func TestRecordSellDebitsAndRecordsNegativeGrams(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	_, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindBuy, GoldGrams: dec("1.0"), FiatAmount: dec("250"), Currency: "USD",
	})
	require.NoError(t, err)

	res, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindSell, GoldGrams: dec("0.4"), FiatAmount: dec("98"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("0.6")))
	assert.True(t, res.Transaction.GoldGrams.Equal(dec("-0.4")))
}

// A failed debit must roll the whole unit back: no transaction row appears.
func TestRecordRollsBackOnInsufficientBalance(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	_, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindSell, GoldGrams: dec("0.5"), FiatAmount: dec("120"), Currency: "USD",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientBalance, apperr.KindOf(err))

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "no transaction row may survive a failed movement")
}

func TestRecordPendingPhysicalWithdrawal(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	_, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindBuy, GoldGrams: dec("10"), FiatAmount: dec("2500"), Currency: "USD",
	})
	require.NoError(t, err)

	res, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindWithdrawPhysical, GoldGrams: dec("5"),
		FiatAmount: dec("1250"), Currency: "USD", Status: domain.StatusPending,
	})
	require.NoError(t, err)
	// Grams leave the balance immediately even though fulfillment is pending.
	assert.True(t, res.Wallet.Balance.Equal(dec("5")))
	assert.Equal(t, domain.StatusPending, res.Transaction.Status)
	assert.Nil(t, res.Transaction.CompletedAt)
}

func TestRecordIdempotencyKeySuppressesDuplicates(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	in := ledger.RecordInput{
		OwnerID: 1, Kind: domain.KindBuy, GoldGrams: dec("0.3"),
		FiatAmount: dec("75"), Currency: "USD",
		IdempotencyKey: "plan-9-2026-03-01",
	}
	first, err := rec.Record(in)
	require.NoError(t, err)
	second, err := rec.Record(in)
	require.NoError(t, err)

	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.True(t, second.Wallet.Balance.Equal(dec("0.3")), "retry must not double-credit")

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	db := testutil.OpenDB(t)
	rec := ledger.NewRecorder(db)

	_, err := rec.Record(ledger.RecordInput{
		OwnerID: 1, Kind: "TRANSFER", GoldGrams: dec("0.1"), Currency: "USD",
	})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}
