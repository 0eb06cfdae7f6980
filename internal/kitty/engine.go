// Package kitty implements the rotating-pool group savings engine. Members
// contribute each round; once every active member has paid, the accumulated
// pot is allocated to one member per round in a fixed order, and the pot's
// grams are credited to the recipient's wallet in the same atomic unit as
// the allocation record.
package kitty

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/ledger"
	"goldvault/internal/metrics"
)

// minMonthlyAmount is the smallest per-round contribution.
var minMonthlyAmount = decimal.NewFromInt(10)

// Engine manages kitties, members, contributions and pot allocations.
type Engine struct {
	db       *gorm.DB
	recorder *ledger.Recorder
	now      func() time.Time
}

// NewEngine builds a kitty Engine.
func NewEngine(db *gorm.DB, recorder *ledger.Recorder) *Engine {
	return &Engine{db: db, recorder: recorder, now: time.Now}
}

// CreateInput describes a new kitty.
type CreateInput struct {
	OwnerID         uint
	Name            string
	MonthlyAmount   decimal.Decimal
	Currency        string
	ContributionDay int
	StartDate       time.Time
	TotalRounds     int
	MemberInvites   []uint // Optional; assigned allocation orders 2..n
}

// Create stores the kitty and adds the owner as the first member, all
// atomically. Invited users join with the following allocation orders.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*domain.Kitty, error) {
	if in.Name == "" {
		return nil, apperr.BadRequest("kitty name is required")
	}
	if in.MonthlyAmount.LessThan(minMonthlyAmount) {
		return nil, apperr.BadRequest("monthly amount must be at least %s, got %s", minMonthlyAmount, in.MonthlyAmount)
	}
	if in.ContributionDay < 1 || in.ContributionDay > 31 {
		return nil, apperr.BadRequest("contribution day must be between 1 and 31, got %d", in.ContributionDay)
	}
	if in.TotalRounds < 2 {
		return nil, apperr.BadRequest("a kitty needs at least 2 rounds, got %d", in.TotalRounds)
	}
	if len(in.MemberInvites)+1 > in.TotalRounds {
		return nil, apperr.BadRequest("%d members exceed the %d available rounds", len(in.MemberInvites)+1, in.TotalRounds)
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	kitty := domain.Kitty{
		OwnerID:         in.OwnerID,
		Name:            in.Name,
		MonthlyAmount:   in.MonthlyAmount,
		Currency:        currency,
		ContributionDay: in.ContributionDay,
		StartDate:       in.StartDate,
		TotalRounds:     in.TotalRounds,
		CurrentRound:    1,
		Status:          domain.KittyActive,
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&kitty).Error; err != nil {
			return err
		}
		members := []domain.KittyMember{{
			KittyID:         kitty.ID,
			OwnerUserID:     in.OwnerID,
			AllocationOrder: 1,
			IsActive:        true,
		}}
		for i, userID := range in.MemberInvites {
			if userID == in.OwnerID {
				return apperr.Conflict("user %d is already a member as the owner", userID)
			}
			members = append(members, domain.KittyMember{
				KittyID:         kitty.ID,
				OwnerUserID:     userID,
				AllocationOrder: i + 2,
				IsActive:        true,
			})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"kitty_id":     kitty.ID,
		"owner_id":     in.OwnerID,
		"total_rounds": in.TotalRounds,
		"members":      len(in.MemberInvites) + 1,
	}).Info("Kitty created")
	return &kitty, nil
}

// AddMember adds a user at the given allocation order. Fails when the kitty
// is full, the order is taken among active members, or the user already is
// an active member.
func (e *Engine) AddMember(ctx context.Context, kittyID, userID uint, allocationOrder int) (*domain.KittyMember, error) {
	kitty, err := e.load(ctx, kittyID)
	if err != nil {
		return nil, err
	}
	if allocationOrder < 1 || allocationOrder > kitty.TotalRounds {
		return nil, apperr.BadRequest("allocation order must be between 1 and %d, got %d", kitty.TotalRounds, allocationOrder)
	}

	var member domain.KittyMember
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := activeMembers(tx, kittyID)
		if err != nil {
			return err
		}
		if len(active) >= kitty.TotalRounds {
			return apperr.Conflict("kitty %d is full: %d members for %d rounds", kittyID, len(active), kitty.TotalRounds)
		}
		for _, m := range active {
			if m.AllocationOrder == allocationOrder {
				return apperr.Conflict("allocation order %d is already taken", allocationOrder)
			}
			if m.OwnerUserID == userID {
				return apperr.Conflict("user %d is already an active member", userID)
			}
		}
		member = domain.KittyMember{
			KittyID:         kittyID,
			OwnerUserID:     userID,
			AllocationOrder: allocationOrder,
			IsActive:        true,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember soft-removes a member. Remaining allocation orders are not
// renumbered; the freed slot may be reused.
func (e *Engine) RemoveMember(ctx context.Context, kittyID, memberID uint) error {
	res := e.db.WithContext(ctx).Model(&domain.KittyMember{}).
		Where("id = ? AND kitty_id = ? AND is_active = ?", memberID, kittyID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("active member %d not found in kitty %d", memberID, kittyID)
	}
	return nil
}

// RecordContribution upserts a member's contribution for a round. The
// contribution counts as paid exactly when a payment reference is supplied.
func (e *Engine) RecordContribution(ctx context.Context, kittyID, memberID uint, roundNumber int, goldGrams, amountFiat decimal.Decimal, paymentRef string) (*domain.KittyContribution, error) {
	kitty, err := e.load(ctx, kittyID)
	if err != nil {
		return nil, err
	}
	if roundNumber < 1 || roundNumber > kitty.TotalRounds {
		return nil, apperr.BadRequest("round must be between 1 and %d, got %d", kitty.TotalRounds, roundNumber)
	}
	if goldGrams.IsNegative() || amountFiat.IsNegative() {
		return nil, apperr.BadRequest("contribution amounts cannot be negative")
	}
	member, err := e.member(ctx, kittyID, memberID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, apperr.Conflict("member %d has been removed from kitty %d", memberID, kittyID)
	}

	var contribution domain.KittyContribution
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("kitty_id = ? AND member_id = ? AND round_number = ?", kittyID, memberID, roundNumber).
			First(&contribution).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		contribution.KittyID = kittyID
		contribution.MemberID = memberID
		contribution.RoundNumber = roundNumber
		contribution.AmountFiat = amountFiat
		contribution.GoldGrams = goldGrams
		contribution.PaymentRef = paymentRef
		contribution.IsPaid = paymentRef != ""
		if contribution.IsPaid && contribution.PaidAt == nil {
			ms := e.now().UnixMilli()
			contribution.PaidAt = &ms
		}
		if !contribution.IsPaid {
			contribution.PaidAt = nil
		}
		return tx.Save(&contribution).Error
	})
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

// AllocatePot pays the round's accumulated pot to the given member. It
// validates, in order: every active member paid for the round, the round is
// not already allocated, and the target is an active member who has not yet
// received a pot. The allocation record, the member's one-way received flag,
// the round advance and the recipient's wallet credit commit atomically.
func (e *Engine) AllocatePot(ctx context.Context, kittyID, memberID uint, roundNumber int) (*domain.KittyAllocation, error) {
	kitty, err := e.load(ctx, kittyID)
	if err != nil {
		return nil, err
	}
	if roundNumber < 1 || roundNumber > kitty.TotalRounds {
		return nil, apperr.BadRequest("round must be between 1 and %d, got %d", kitty.TotalRounds, roundNumber)
	}

	var allocation domain.KittyAllocation
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := activeMembers(tx, kittyID)
		if err != nil {
			return err
		}
		var contributions []domain.KittyContribution
		if err := tx.Where("kitty_id = ? AND round_number = ? AND is_paid = ?", kittyID, roundNumber, true).
			Find(&contributions).Error; err != nil {
			return err
		}
		paidBy := make(map[uint]bool, len(contributions))
		for _, c := range contributions {
			paidBy[c.MemberID] = true
		}
		unpaid := 0
		for _, m := range active {
			if !paidBy[m.ID] {
				unpaid++
			}
		}
		if unpaid > 0 {
			return apperr.Conflict("round %d has %d unpaid contributions of %d active members", roundNumber, unpaid, len(active))
		}

		var existing domain.KittyAllocation
		err = tx.Where("kitty_id = ? AND round_number = ?", kittyID, roundNumber).First(&existing).Error
		if err == nil {
			return apperr.Conflict("round %d of kitty %d was already allocated", roundNumber, kittyID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var target *domain.KittyMember
		for i := range active {
			if active[i].ID == memberID {
				target = &active[i]
				break
			}
		}
		if target == nil {
			return apperr.Conflict("member %d is not an active member of kitty %d", memberID, kittyID)
		}
		if target.HasReceivedPot {
			return apperr.Conflict("member %d already received a pot", memberID)
		}

		totalGrams, totalFiat := decimal.Zero, decimal.Zero
		for _, c := range contributions {
			totalGrams = totalGrams.Add(c.GoldGrams)
			totalFiat = totalFiat.Add(c.AmountFiat)
		}

		// Credit the pot to the recipient's wallet inside the same unit;
		// the adjustment transaction doubles as the audit trail.
		meta, _ := json.Marshal(map[string]any{
			"kitty_id":     kittyID,
			"round_number": roundNumber,
			"member_id":    memberID,
		})
		res, err := e.recorder.RecordIn(tx, ledger.RecordInput{
			OwnerID:    target.OwnerUserID,
			Kind:       domain.KindAdjustment,
			GoldGrams:  totalGrams,
			FiatAmount: totalFiat,
			Currency:   kitty.Currency,
			Metadata:   string(meta),
		})
		if err != nil {
			return err
		}

		allocation = domain.KittyAllocation{
			KittyID:         kittyID,
			RoundNumber:     roundNumber,
			MemberID:        memberID,
			TotalGoldGrams:  totalGrams,
			TotalAmountFiat: totalFiat,
			TransactionID:   res.Transaction.ID,
			AllocatedAt:     e.now().UnixMilli(),
		}
		if err := tx.Create(&allocation).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.KittyMember{}).Where("id = ?", memberID).
			Update("has_received_pot", true).Error; err != nil {
			return err
		}
		updates := map[string]any{"current_round": roundNumber + 1}
		if roundNumber+1 > kitty.TotalRounds {
			updates["status"] = domain.KittyCompleted
		}
		return tx.Model(&domain.Kitty{}).Where("id = ?", kittyID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.PotAllocationsTotal.Inc()
	logrus.WithFields(logrus.Fields{
		"kitty_id":     kittyID,
		"round_number": roundNumber,
		"member_id":    memberID,
		"total_grams":  allocation.TotalGoldGrams.String(),
	}).Info("Kitty pot allocated")
	return &allocation, nil
}

// Get returns a kitty with its members.
func (e *Engine) Get(ctx context.Context, kittyID uint) (*domain.Kitty, []domain.KittyMember, error) {
	kitty, err := e.load(ctx, kittyID)
	if err != nil {
		return nil, nil, err
	}
	var members []domain.KittyMember
	if err := e.db.WithContext(ctx).
		Where("kitty_id = ?", kittyID).
		Order("allocation_order ASC").
		Find(&members).Error; err != nil {
		return nil, nil, err
	}
	return kitty, members, nil
}

func (e *Engine) load(ctx context.Context, kittyID uint) (*domain.Kitty, error) {
	var kitty domain.Kitty
	err := e.db.WithContext(ctx).First(&kitty, kittyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("kitty %d not found", kittyID)
	}
	if err != nil {
		return nil, err
	}
	return &kitty, nil
}

func (e *Engine) member(ctx context.Context, kittyID, memberID uint) (*domain.KittyMember, error) {
	var m domain.KittyMember
	err := e.db.WithContext(ctx).
		Where("id = ? AND kitty_id = ?", memberID, kittyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("member %d not found in kitty %d", memberID, kittyID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func activeMembers(tx *gorm.DB, kittyID uint) ([]domain.KittyMember, error) {
	var members []domain.KittyMember
	err := tx.Where("kitty_id = ? AND is_active = ?", kittyID, true).
		Order("allocation_order ASC").
		Find(&members).Error
	return members, err
}
