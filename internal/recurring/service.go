package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
	"goldvault/internal/metrics"
	"goldvault/internal/movement"
	"goldvault/internal/payment"
	"goldvault/internal/utils"
)

// planLockTTL bounds how long a crashed execution can hold a plan lock.
const planLockTTL = time.Minute

// Scheduler finds due plans and executes them through the buy flow.
type Scheduler struct {
	db        *gorm.DB
	movements *movement.Service
	charger   payment.Charger
	rdb       *redis.Client // Optional; nil falls back to the status gate only
	now       func() time.Time
}

// NewScheduler builds a Scheduler. rdb may be nil.
func NewScheduler(db *gorm.DB, movements *movement.Service, charger payment.Charger, rdb *redis.Client) *Scheduler {
	return &Scheduler{db: db, movements: movements, charger: charger, rdb: rdb, now: time.Now}
}

// CreatePlanInput describes a new recurring plan.
type CreatePlanInput struct {
	OwnerID         uint
	Name            string
	RecurringAmount decimal.Decimal
	Currency        string
	Frequency       string
	ExecutionDay    int
	StartDate       time.Time
	GoalAmount      *decimal.Decimal
	GoalDate        *time.Time
}

// CreatePlan validates and stores a plan with its first execution date.
func (s *Scheduler) CreatePlan(ctx context.Context, in CreatePlanInput) (*domain.RecurringPlan, error) {
	if in.RecurringAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BadRequest("recurring amount must be positive, got %s", in.RecurringAmount)
	}
	if err := ValidateSchedule(in.Frequency, in.ExecutionDay); err != nil {
		return nil, err
	}
	if in.GoalAmount != nil && in.GoalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BadRequest("goal amount must be positive when set")
	}
	start := Day(in.StartDate)
	if start.IsZero() {
		start = Day(s.now())
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	plan := domain.RecurringPlan{
		OwnerID:           in.OwnerID,
		Name:              in.Name,
		RecurringAmount:   in.RecurringAmount,
		Currency:          currency,
		Frequency:         in.Frequency,
		ExecutionDay:      in.ExecutionDay,
		StartDate:         start,
		NextExecutionDate: FirstDate(start, in.Frequency, in.ExecutionDay),
		Status:            domain.PlanActive,
		GoalAmount:        in.GoalAmount,
	}
	if in.GoalDate != nil {
		gd := Day(*in.GoalDate)
		plan.GoalDate = &gd
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"owner_id":  in.OwnerID,
		"plan_id":   plan.ID,
		"frequency": plan.Frequency,
		"next_date": plan.NextExecutionDate.Format("2006-01-02"),
	}).Info("Recurring plan created")
	return &plan, nil
}

// Pause transitions an ACTIVE plan to PAUSED.
func (s *Scheduler) Pause(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error) {
	return s.transition(ctx, ownerID, planID, func(p *domain.RecurringPlan) error {
		if p.Status != domain.PlanActive {
			return apperr.Conflict("plan %d is %s, only ACTIVE plans can be paused", p.ID, p.Status)
		}
		p.Status = domain.PlanPaused
		return nil
	})
}

// Resume transitions a PAUSED plan back to ACTIVE and recomputes its next
// execution date from today so missed occurrences are not replayed.
func (s *Scheduler) Resume(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error) {
	return s.transition(ctx, ownerID, planID, func(p *domain.RecurringPlan) error {
		if p.Status != domain.PlanPaused {
			return apperr.Conflict("plan %d is %s, only PAUSED plans can be resumed", p.ID, p.Status)
		}
		p.Status = domain.PlanActive
		p.NextExecutionDate = FirstDate(s.now(), p.Frequency, p.ExecutionDay)
		return nil
	})
}

// Cancel transitions an ACTIVE or PAUSED plan to the terminal CANCELLED.
func (s *Scheduler) Cancel(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error) {
	return s.transition(ctx, ownerID, planID, func(p *domain.RecurringPlan) error {
		if p.Status != domain.PlanActive && p.Status != domain.PlanPaused {
			return apperr.Conflict("plan %d is already %s", p.ID, p.Status)
		}
		p.Status = domain.PlanCancelled
		return nil
	})
}

// Progress reports how far a plan is toward its goal.
type Progress struct {
	Plan           *domain.RecurringPlan
	TotalFiat      decimal.Decimal
	TotalGrams     decimal.Decimal
	ExecutionCount int64
	GoalReached    bool
}

// PlanProgress sums the plan's completed executions; goal reached is a
// derived query, never pushed.
func (s *Scheduler) PlanProgress(ctx context.Context, ownerID, planID uint) (*Progress, error) {
	plan, err := s.loadOwned(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}
	var execs []domain.RecurringPlanExecution
	if err := s.db.WithContext(ctx).
		Where("plan_id = ? AND status = ?", planID, domain.ExecutionCompleted).
		Find(&execs).Error; err != nil {
		return nil, err
	}
	p := Progress{Plan: plan, TotalFiat: decimal.Zero, TotalGrams: decimal.Zero}
	for _, e := range execs {
		p.TotalFiat = p.TotalFiat.Add(e.AmountFiat)
		if e.GoldGrams != nil {
			p.TotalGrams = p.TotalGrams.Add(*e.GoldGrams)
		}
		p.ExecutionCount++
	}
	if plan.GoalAmount != nil && p.TotalFiat.GreaterThanOrEqual(*plan.GoalAmount) {
		p.GoalReached = true
	}
	return &p, nil
}

// Complete marks a plan COMPLETED once its goal is reached.
func (s *Scheduler) Complete(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error) {
	progress, err := s.PlanProgress(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}
	if !progress.GoalReached {
		return nil, apperr.Conflict("plan %d has not reached its goal", planID)
	}
	return s.transition(ctx, ownerID, planID, func(p *domain.RecurringPlan) error {
		if p.Status != domain.PlanActive && p.Status != domain.PlanPaused {
			return apperr.Conflict("plan %d is already %s", p.ID, p.Status)
		}
		p.Status = domain.PlanCompleted
		return nil
	})
}

// FindDuePlans returns every ACTIVE plan whose next execution date is not in
// the future.
func (s *Scheduler) FindDuePlans(ctx context.Context) ([]domain.RecurringPlan, error) {
	var plans []domain.RecurringPlan
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_execution_date <= ?", domain.PlanActive, Day(s.now())).
		Order("next_execution_date ASC").
		Find(&plans).Error
	return plans, err
}

// Execute runs one occurrence of a plan: charge the payment method, buy gold
// through the movement flow, record the outcome. The plan's next execution
// date advances whether or not the attempt succeeds, so a failing plan never
// wedges its own schedule; the failed occurrence row stays retriable.
func (s *Scheduler) Execute(ctx context.Context, planID uint) error {
	if s.rdb != nil {
		ok, err := utils.AcquireLock(ctx, s.rdb, utils.PlanLockKey(planID), planLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("plan %d execution already in progress", planID)
		}
		defer func() { _ = utils.ReleaseLock(ctx, s.rdb, utils.PlanLockKey(planID)) }()
	}

	var plan domain.RecurringPlan
	if err := s.db.WithContext(ctx).First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("plan %d not found", planID)
		}
		return err
	}
	if plan.Status != domain.PlanActive {
		return apperr.Conflict("plan %d is %s, only ACTIVE plans execute", planID, plan.Status)
	}

	scheduled := Day(plan.NextExecutionDate)
	exec, err := s.openExecution(ctx, &plan, scheduled)
	if err != nil {
		return err
	}

	idemKey := fmt.Sprintf("plan-%d-%s", plan.ID, scheduled.Format("2006-01-02"))
	chargeErr := s.charger.Charge(ctx, plan.OwnerID, plan.RecurringAmount, plan.Currency, idemKey)
	if chargeErr != nil {
		return s.failExecution(ctx, &plan, exec, scheduled, payment.Failed(chargeErr))
	}

	res, buyErr := s.movements.Buy(ctx, movement.BuyInput{
		OwnerID:        plan.OwnerID,
		FiatAmount:     &plan.RecurringAmount,
		IdempotencyKey: idemKey,
	})
	if buyErr != nil {
		return s.failExecution(ctx, &plan, exec, scheduled, buyErr)
	}

	now := s.now()
	grams := res.Transaction.GoldGrams
	txID := res.Transaction.ID
	err = s.db.WithContext(ctx).Model(exec).Updates(map[string]any{
		"status":         domain.ExecutionCompleted,
		"executed_date":  now,
		"gold_grams":     grams,
		"transaction_id": txID,
		"failure_reason": "",
	}).Error
	if err != nil {
		return err
	}
	if err := s.advance(ctx, &plan, scheduled); err != nil {
		return err
	}

	metrics.PlanExecutionsTotal.WithLabelValues("ok").Inc()
	logrus.WithFields(logrus.Fields{
		"plan_id":        plan.ID,
		"owner_id":       plan.OwnerID,
		"scheduled_date": scheduled.Format("2006-01-02"),
		"gold_grams":     grams.String(),
		"reference_code": res.Transaction.ReferenceCode,
	}).Info("Recurring plan executed")
	return nil
}

// RunDue executes every due plan independently, continuing past per-plan
// failures.
func (s *Scheduler) RunDue(ctx context.Context) (executed, failed int, err error) {
	metrics.SchedulerRunsTotal.Inc()
	plans, err := s.FindDuePlans(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, plan := range plans {
		if execErr := s.Execute(ctx, plan.ID); execErr != nil {
			failed++
			logrus.WithFields(logrus.Fields{
				"plan_id": plan.ID,
				"error":   execErr.Error(),
			}).Error("Recurring plan execution failed")
			continue
		}
		executed++
	}
	logrus.WithFields(logrus.Fields{
		"due":      len(plans),
		"executed": executed,
		"failed":   failed,
	}).Info("Recurring scheduler run finished")
	return executed, failed, nil
}

// openExecution finds or creates the PENDING execution row for the
// occurrence. A COMPLETED row means the occurrence already ran.
func (s *Scheduler) openExecution(ctx context.Context, plan *domain.RecurringPlan, scheduled time.Time) (*domain.RecurringPlanExecution, error) {
	var exec domain.RecurringPlanExecution
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND scheduled_date = ?", plan.ID, scheduled).
		First(&exec).Error
	switch {
	case err == nil:
		if exec.Status == domain.ExecutionCompleted {
			return nil, apperr.Conflict("plan %d occurrence %s already executed", plan.ID, scheduled.Format("2006-01-02"))
		}
		// A FAILED row is being retried; continue the same occurrence.
		return &exec, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		exec = domain.RecurringPlanExecution{
			PlanID:        plan.ID,
			ScheduledDate: scheduled,
			AmountFiat:    plan.RecurringAmount,
			Status:        domain.ExecutionPending,
		}
		if err := s.db.WithContext(ctx).Create(&exec).Error; err != nil {
			return nil, err
		}
		return &exec, nil
	default:
		return nil, err
	}
}

// failExecution marks the occurrence FAILED, still advances the schedule,
// and re-raises the cause.
func (s *Scheduler) failExecution(ctx context.Context, plan *domain.RecurringPlan, exec *domain.RecurringPlanExecution, scheduled time.Time, cause error) error {
	now := s.now()
	reason := cause.Error()
	if len(reason) > 255 {
		reason = reason[:255]
	}
	if err := s.db.WithContext(ctx).Model(exec).Updates(map[string]any{
		"status":         domain.ExecutionFailed,
		"executed_date":  now,
		"failure_reason": reason,
	}).Error; err != nil {
		return err
	}
	if err := s.advance(ctx, plan, scheduled); err != nil {
		return err
	}
	metrics.PlanExecutionsTotal.WithLabelValues("failed").Inc()
	return cause
}

// advance recomputes and persists the plan's next execution date.
func (s *Scheduler) advance(ctx context.Context, plan *domain.RecurringPlan, from time.Time) error {
	next := NextDate(from, plan.Frequency, plan.ExecutionDay)
	plan.NextExecutionDate = next
	return s.db.WithContext(ctx).Model(plan).Update("next_execution_date", next).Error
}

func (s *Scheduler) loadOwned(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error) {
	var plan domain.RecurringPlan
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", planID, ownerID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("plan %d not found", planID)
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *Scheduler) transition(ctx context.Context, ownerID, planID uint, fn func(p *domain.RecurringPlan) error) (*domain.RecurringPlan, error) {
	plan, err := s.loadOwned(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}
	if err := fn(plan); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(plan).
		Updates(map[string]any{"status": plan.Status, "next_execution_date": plan.NextExecutionDate}).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"plan_id": plan.ID,
		"status":  plan.Status,
	}).Info("Recurring plan state changed")
	return plan, nil
}

// ListPlans returns a user's plans, newest first.
func (s *Scheduler) ListPlans(ctx context.Context, ownerID uint) ([]domain.RecurringPlan, error) {
	var plans []domain.RecurringPlan
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}
