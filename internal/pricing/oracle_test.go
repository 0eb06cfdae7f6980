package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldvault/internal/apperr"
	"goldvault/internal/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEffectiveQuoteWithNothingRecorded(t *testing.T) {
	o := NewOracle(testutil.OpenDB(t), nil)
	_, err := o.EffectiveQuote(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNoQuote, apperr.KindOf(err))
}

func TestEffectiveQuotePrefersLatestSnapshot(t *testing.T) {
	o := NewOracle(testutil.OpenDB(t), nil)
	ctx := context.Background()

	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-1 * time.Hour)
	_, err := o.RecordSnapshot(ctx, "market", dec("240"), dec("235"), "USD", &older)
	require.NoError(t, err)
	_, err = o.RecordSnapshot(ctx, "market", dec("250"), dec("245"), "USD", &newer)
	require.NoError(t, err)

	q, err := o.EffectiveQuote(ctx)
	require.NoError(t, err)
	assert.False(t, q.IsOverride)
	assert.Equal(t, "market", q.Source)
	assert.True(t, q.BuyPrice.Equal(dec("250")))
	assert.True(t, q.SellPrice.Equal(dec("245")))
}

func TestOverrideBeatsSnapshot(t *testing.T) {
	o := NewOracle(testutil.OpenDB(t), nil)
	ctx := context.Background()

	_, err := o.RecordSnapshot(ctx, "market", dec("250"), dec("245"), "USD", nil)
	require.NoError(t, err)
	_, err = o.AddOverride(ctx, 42, dec("260"), dec("255"), "USD", "supply squeeze", nil)
	require.NoError(t, err)

	q, err := o.EffectiveQuote(ctx)
	require.NoError(t, err)
	assert.True(t, q.IsOverride)
	assert.Equal(t, SourceOverride, q.Source)
	assert.Equal(t, "supply squeeze", q.OverrideReason)
	assert.True(t, q.BuyPrice.Equal(dec("260")))
}

func TestExpiredOverrideFallsBackToSnapshot(t *testing.T) {
	db := testutil.OpenDB(t)
	o := NewOracle(db, nil)
	ctx := context.Background()

	_, err := o.RecordSnapshot(ctx, "market", dec("250"), dec("245"), "USD", nil)
	require.NoError(t, err)
	expired := time.Now().Add(-time.Minute)
	_, err = o.AddOverride(ctx, 42, dec("260"), dec("255"), "USD", "was temporary", &expired)
	require.NoError(t, err)

	q, err := o.EffectiveQuote(ctx)
	require.NoError(t, err)
	assert.False(t, q.IsOverride)
	assert.True(t, q.BuyPrice.Equal(dec("250")))
}

// Overrides are append-only: the newest active row wins, nothing is edited.
func TestNewestOverrideSupersedesOlder(t *testing.T) {
	db := testutil.OpenDB(t)
	o := NewOracle(db, nil)
	ctx := context.Background()

	first, err := o.AddOverride(ctx, 42, dec("260"), dec("255"), "USD", "first", nil)
	require.NoError(t, err)
	second, err := o.AddOverride(ctx, 42, dec("270"), dec("265"), "USD", "second", nil)
	require.NoError(t, err)

	// Force distinct creation order even within one millisecond.
	require.NoError(t, db.Model(first).Update("created_at", second.CreatedAt-1).Error)

	q, err := o.EffectiveQuote(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", q.OverrideReason)
	assert.True(t, q.BuyPrice.Equal(dec("270")))
}

func TestRecordSnapshotValidation(t *testing.T) {
	o := NewOracle(testutil.OpenDB(t), nil)
	ctx := context.Background()

	_, err := o.RecordSnapshot(ctx, "market", decimal.Zero, dec("245"), "USD", nil)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = o.RecordSnapshot(ctx, "", dec("250"), dec("245"), "USD", nil)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}
