package kitty_test

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
	"goldvault/internal/kitty"
	"goldvault/internal/ledger"
	"goldvault/internal/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T) (*kitty.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	return kitty.NewEngine(db, ledger.NewRecorder(db)), db
}

func createKitty(t *testing.T, e *kitty.Engine, invites ...uint) *domain.Kitty {
	t.Helper()
	k, err := e.Create(context.Background(), kitty.CreateInput{
		OwnerID:         1,
		Name:            "family pool",
		MonthlyAmount:   dec("100"),
		ContributionDay: 5,
		StartDate:       time.Now(),
		TotalRounds:     3,
		MemberInvites:   invites,
	})
	require.NoError(t, err)
	return k
}

func membersOf(t *testing.T, e *kitty.Engine, kittyID uint) []domain.KittyMember {
	t.Helper()
	_, members, err := e.Get(context.Background(), kittyID)
	require.NoError(t, err)
	return members
}

func TestCreateAddsOwnerAsFirstMember(t *testing.T) {
	e, _ := newEngine(t)
	k := createKitty(t, e, 2, 3)

	members := membersOf(t, e, k.ID)
	require.Len(t, members, 3)
	assert.EqualValues(t, 1, members[0].OwnerUserID)
	assert.Equal(t, 1, members[0].AllocationOrder)
	assert.Equal(t, 2, members[1].AllocationOrder)
	assert.Equal(t, 3, members[2].AllocationOrder)
	assert.Equal(t, 1, k.CurrentRound)
}

func TestCreateValidation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	cases := []kitty.CreateInput{
		{OwnerID: 1, Name: "", MonthlyAmount: dec("100"), ContributionDay: 5, TotalRounds: 3},
		{OwnerID: 1, Name: "p", MonthlyAmount: dec("9.99"), ContributionDay: 5, TotalRounds: 3},
		{OwnerID: 1, Name: "p", MonthlyAmount: dec("100"), ContributionDay: 0, TotalRounds: 3},
		{OwnerID: 1, Name: "p", MonthlyAmount: dec("100"), ContributionDay: 32, TotalRounds: 3},
		{OwnerID: 1, Name: "p", MonthlyAmount: dec("100"), ContributionDay: 5, TotalRounds: 1},
		{OwnerID: 1, Name: "p", MonthlyAmount: dec("100"), ContributionDay: 5, TotalRounds: 2, MemberInvites: []uint{2, 3}},
	}
	for _, in := range cases {
		_, err := e.Create(ctx, in)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), "input %+v", in)
	}
}

func TestAddMemberConflicts(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e) // owner only, 3 rounds

	_, err := e.AddMember(ctx, k.ID, 2, 2)
	require.NoError(t, err)

	// Taken order.
	_, err = e.AddMember(ctx, k.ID, 3, 2)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	// Already a member.
	_, err = e.AddMember(ctx, k.ID, 2, 3)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = e.AddMember(ctx, k.ID, 3, 3)
	require.NoError(t, err)
	// Full: three active members for three rounds.
	_, err = e.AddMember(ctx, k.ID, 4, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Unknown kitty.
	_, err = e.AddMember(ctx, 999, 4, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRemoveMemberFreesSlotWithoutRenumbering(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)

	require.NoError(t, e.RemoveMember(ctx, k.ID, members[1].ID))

	// The others keep their orders.
	fresh := membersOf(t, e, k.ID)
	assert.Equal(t, 1, fresh[0].AllocationOrder)
	assert.Equal(t, 3, fresh[2].AllocationOrder)
	assert.False(t, fresh[1].IsActive)

	// The freed slot can be taken by a new member.
	_, err := e.AddMember(ctx, k.ID, 4, 2)
	require.NoError(t, err)

	// Removing twice is NotFound (no longer active).
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(e.RemoveMember(ctx, k.ID, members[1].ID)))
}

func TestRecordContributionUpsertAndPaidFlag(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2)
	members := membersOf(t, e, k.ID)

	// Without a payment reference the contribution is recorded unpaid.
	c, err := e.RecordContribution(ctx, k.ID, members[0].ID, 1, dec("0.4"), dec("100"), "")
	require.NoError(t, err)
	assert.False(t, c.IsPaid)
	assert.Nil(t, c.PaidAt)

	// Supplying the reference upserts the same row and marks it paid.
	c2, err := e.RecordContribution(ctx, k.ID, members[0].ID, 1, dec("0.4"), dec("100"), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, c2.ID)
	assert.True(t, c2.IsPaid)
	require.NotNil(t, c2.PaidAt)

	var count int64
	require.NoError(t, db.Model(&domain.KittyContribution{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Contributions from removed members are refused.
	require.NoError(t, e.RemoveMember(ctx, k.ID, members[1].ID))
	_, err = e.RecordContribution(ctx, k.ID, members[1].ID, 1, dec("0.4"), dec("100"), "PAY-2")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func payRound(t *testing.T, e *kitty.Engine, k *domain.Kitty, members []domain.KittyMember, round int) {
	t.Helper()
	for _, m := range members {
		if !m.IsActive {
			continue
		}
		_, err := e.RecordContribution(context.Background(), k.ID, m.ID, round, dec("0.4"), dec("100"), "PAY")
		require.NoError(t, err)
	}
}

func TestAllocatePotHappyPath(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)
	payRound(t, e, k, members, 1)

	alloc, err := e.AllocatePot(ctx, k.ID, members[0].ID, 1)
	require.NoError(t, err)
	assert.True(t, alloc.TotalGoldGrams.Equal(dec("1.2")), "pot grams = %s", alloc.TotalGoldGrams)
	assert.True(t, alloc.TotalAmountFiat.Equal(dec("300")))

	// The recipient's wallet received the pot via an adjustment.
	var w domain.Wallet
	require.NoError(t, db.Where("owner_id = ?", members[0].OwnerUserID).First(&w).Error)
	assert.True(t, w.Balance.Equal(dec("1.2")))
	var tx domain.Transaction
	require.NoError(t, db.First(&tx, alloc.TransactionID).Error)
	assert.Equal(t, domain.KindAdjustment, tx.Kind)

	// Round advanced, received flag set.
	fresh, freshMembers, err := e.Get(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.CurrentRound)
	assert.True(t, freshMembers[0].HasReceivedPot)
}

func TestAllocatePotRequiresAllPaid(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)

	// Only two of three members paid.
	_, err := e.RecordContribution(ctx, k.ID, members[0].ID, 1, dec("0.4"), dec("100"), "PAY")
	require.NoError(t, err)
	_, err = e.RecordContribution(ctx, k.ID, members[1].ID, 1, dec("0.4"), dec("100"), "PAY")
	require.NoError(t, err)

	_, err = e.AllocatePot(ctx, k.ID, members[0].ID, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// An unpaid (no reference) contribution does not count either.
	_, err = e.RecordContribution(ctx, k.ID, members[2].ID, 1, dec("0.4"), dec("100"), "")
	require.NoError(t, err)
	_, err = e.AllocatePot(ctx, k.ID, members[0].ID, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAllocatePotOncePerRoundAndPerMember(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)
	payRound(t, e, k, members, 1)

	_, err := e.AllocatePot(ctx, k.ID, members[0].ID, 1)
	require.NoError(t, err)

	// Same round twice.
	_, err = e.AllocatePot(ctx, k.ID, members[1].ID, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Same member twice across rounds.
	payRound(t, e, k, members, 2)
	_, err = e.AllocatePot(ctx, k.ID, members[0].ID, 2)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// A different member is fine.
	_, err = e.AllocatePot(ctx, k.ID, members[1].ID, 2)
	require.NoError(t, err)
}

func TestAllocateFinalRoundCompletesKitty(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)

	for round := 1; round <= 3; round++ {
		payRound(t, e, k, members, round)
		_, err := e.AllocatePot(ctx, k.ID, members[round-1].ID, round)
		require.NoError(t, err)
	}

	fresh, _, err := e.Get(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KittyCompleted, fresh.Status)
}

func TestAllocatePotToInactiveMemberFails(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	k := createKitty(t, e, 2, 3)
	members := membersOf(t, e, k.ID)

	require.NoError(t, e.RemoveMember(ctx, k.ID, members[2].ID))
	payRound(t, e, k, members[:2], 1)

	_, err := e.AllocatePot(ctx, k.ID, members[2].ID, 1)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
