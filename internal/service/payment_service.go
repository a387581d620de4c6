package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/event"
	"oficina/internal/model"
	"oficina/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxInstallments bounds the plans the shop offers.
const maxInstallments = 24

// PaymentResult is the outcome of a payment mutation. Changed is false for
// idempotent no-ops; Warnings hold notification failures after commit.
type PaymentResult struct {
	Payment        *model.Payment
	AlreadyExisted bool
	Changed        bool
	Warnings       []string
}

type PaymentService interface {
	CreateOnFinalize(ctx context.Context, req dto.CreatePaymentRequest) (*PaymentResult, error)
	Configure(ctx context.Context, orderID uuid.UUID, req dto.ConfigurePaymentRequest) (*PaymentResult, error)
	MarkPaid(ctx context.Context, paymentID uuid.UUID, req dto.MarkPaidRequest) (*PaymentResult, error)
	MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, req dto.MarkPaidRequest) (*PaymentResult, error)
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
	Cancel(ctx context.Context, paymentID uuid.UUID) (*PaymentResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
}

type paymentService struct {
	store     *repository.Store
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	registers repository.CashRegisterRepository
	events    event.Publisher
}

func NewPaymentService(
	store *repository.Store,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	registers repository.CashRegisterRepository,
	events event.Publisher,
) PaymentService {
	return &paymentService{
		store:     store,
		payments:  payments,
		orders:    orders,
		registers: registers,
		events:    events,
	}
}

var errPaymentRace = errors.New("payment created concurrently")

// ── CreateOnFinalize ─────────────────────────────────────────────────────────
// Idempotent: an order's active payment is returned as is with
// AlreadyExisted set. The amount is added to the open register's revenue.

func (s *paymentService) CreateOnFinalize(ctx context.Context, req dto.CreatePaymentRequest) (*PaymentResult, error) {
	if req.TotalAmount.IsNegative() {
		return nil, apierror.Validation("total_amount", "total amount cannot be negative")
	}

	res := &PaymentResult{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, req.OrderID)
		if err != nil {
			return err
		}
		if existing, err := s.payments.FindActiveByOrderTx(tx, order.ID); err == nil {
			res.Payment = existing
			res.AlreadyExisted = true
			return nil
		} else if !apierror.IsNotFound(err) {
			return err
		}

		p := &model.Payment{
			OrderID:     order.ID,
			ClientID:    req.ClientID,
			TotalAmount: req.TotalAmount.Round(2),
			Discount:    order.Discount,
			Surcharge:   order.Surcharge,
			Method:      model.MethodPending,
			Status:      model.PaymentGenerated,
		}
		if req.CashRegisterID != nil {
			reg, err := s.registers.LockByIDTx(tx, *req.CashRegisterID)
			switch {
			case err == nil && reg.IsOpen():
				p.CashRegisterID = &reg.ID
				if err := s.registers.UpdateRevenueTx(tx, reg.ID, reg.RevenueTotal.Add(p.TotalAmount)); err != nil {
					return err
				}
			case err == nil || apierror.IsNotFound(err):
				log.Warn().Str("cash_register_id", req.CashRegisterID.String()).Msg("register not open at payment creation")
			default:
				return err
			}
		}

		if err := s.payments.CreateTx(tx, p); err != nil {
			if repository.IsUniqueViolation(err) {
				return errPaymentRace
			}
			return err
		}
		p.Installments = []model.Installment{}
		res.Payment = p
		res.Changed = true
		return nil
	})
	if errors.Is(err, errPaymentRace) {
		existing, findErr := s.payments.FindActiveByOrder(ctx, req.OrderID)
		if findErr != nil {
			return nil, findErr
		}
		return &PaymentResult{Payment: existing, AlreadyExisted: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if res.Changed {
		log.Info().
			Str("order_id", req.OrderID.String()).
			Str("payment_id", res.Payment.ID.String()).
			Str("total", res.Payment.TotalAmount.StringFixed(2)).
			Msg("payment generated")
	}
	return res, nil
}

// ── Configure ────────────────────────────────────────────────────────────────
// Recomputes the order with the given adjustments and replaces the plan:
// "full" is paid at once; N installments leave the payment pending with N
// month-stepped rows when N > 1. Running it again replaces everything.

func (s *paymentService) Configure(ctx context.Context, orderID uuid.UUID, req dto.ConfigurePaymentRequest) (*PaymentResult, error) {
	method := model.PaymentMethod(req.Method)
	if !method.Valid() || method == model.MethodPending {
		return nil, apierror.Validation("method", "unknown payment method")
	}
	plan := req.Installments.OrFull()
	if !plan.Full && (plan.Count < 1 || plan.Count > maxInstallments) {
		return nil, apierror.Validation("installments", fmt.Sprintf("installments must be \"full\" or between 1 and %d", maxInstallments))
	}
	if req.Discount != nil && req.Discount.IsNegative() {
		return nil, apierror.Validation("discount", "discount cannot be negative")
	}
	if req.Surcharge != nil && req.Surcharge.IsNegative() {
		return nil, apierror.Validation("surcharge", "surcharge cannot be negative")
	}
	now := time.Now().UTC()
	due := now
	if req.DueDate != nil {
		due = req.DueDate.UTC()
	}

	res := &PaymentResult{Changed: true}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == model.OrderCancelled {
			return apierror.ErrOrderClosed.WithMessage("cancelled orders cannot be billed")
		}

		p, err := s.payments.FindActiveByOrderTx(tx, orderID)
		switch {
		case apierror.IsNotFound(err):
			// Explicit checkout before finalization.
			p = &model.Payment{
				OrderID:  orderID,
				ClientID: order.ClientID,
				Method:   model.MethodPending,
				Status:   model.PaymentGenerated,
			}
			if err := s.payments.CreateTx(tx, p); err != nil {
				if repository.IsUniqueViolation(err) {
					return apierror.ErrPaymentAlreadyExists
				}
				return err
			}
		case err != nil:
			return err
		default:
			if p, err = s.payments.LockByIDTx(tx, p.ID); err != nil {
				return err
			}
			if p.Status == model.PaymentPaid {
				return apierror.ErrPaymentAlreadyPaid
			}
			current, err := s.payments.ListInstallmentsTx(tx, p.ID)
			if err != nil {
				return err
			}
			for _, inst := range current {
				if inst.Status == model.InstallmentPaid {
					return apierror.ErrPaymentAlreadyPaid.WithMessage("payment has paid installments and cannot be reconfigured")
				}
			}
		}

		totals, err := recomputeTotals(tx, s.orders, orderID, adjustments{discount: req.Discount, surcharge: req.Surcharge})
		if err != nil {
			return err
		}
		if err := s.moveRevenue(tx, p, totals.Total); err != nil {
			return err
		}

		p.TotalAmount = totals.Total
		p.Discount = totals.Discount
		p.Surcharge = totals.Surcharge
		p.Method = method
		p.DueDate = &due
		var schedule []model.Installment
		if plan.Full {
			paid := totals.Total
			p.Status = model.PaymentPaid
			p.PaidAmount = &paid
			p.PaidDate = &now
			p.InstallmentCount = nil
		} else {
			n := plan.Count
			p.Status = model.PaymentPending
			p.PaidAmount = nil
			p.PaidDate = nil
			p.InstallmentCount = &n
			if n > 1 {
				schedule = BuildInstallments(p.ID, totals.Total, n, due)
			}
		}

		if err := s.payments.SaveTx(tx, p); err != nil {
			return err
		}
		if err := s.payments.ReplaceInstallmentsTx(tx, p.ID, schedule); err != nil {
			return err
		}
		if schedule == nil {
			schedule = []model.Installment{}
		}
		p.Installments = schedule
		res.Payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", res.Payment.ID.String()).
		Str("plan", res.Payment.PlanLabel()).
		Str("total", res.Payment.TotalAmount.StringFixed(2)).
		Msg("payment configured")
	if res.Payment.Status == model.PaymentPaid {
		res.Warnings = s.realized(ctx, res.Payment)
	}
	return res, nil
}

// moveRevenue keeps the register's revenue in step with a payment whose
// total changes. The register that was credited must still be open.
func (s *paymentService) moveRevenue(tx *gorm.DB, p *model.Payment, newTotal decimal.Decimal) error {
	if p.CashRegisterID == nil {
		return nil
	}
	delta := newTotal.Sub(p.TotalAmount)
	if delta.IsZero() {
		return nil
	}
	reg, err := s.registers.LockByIDTx(tx, *p.CashRegisterID)
	if err != nil {
		return err
	}
	if !reg.IsOpen() {
		return apierror.ErrRegisterClosed.WithMessage("the register credited with this payment is closed; its total cannot change")
	}
	if err := s.registers.UpdateRevenueTx(tx, reg.ID, reg.RevenueTotal.Add(delta)); err != nil {
		return err
	}
	log.Info().
		Str("payment_id", p.ID.String()).
		Str("cash_register_id", reg.ID.String()).
		Str("delta", delta.StringFixed(2)).
		Msg("register revenue adjusted")
	return nil
}

// ── MarkPaid ─────────────────────────────────────────────────────────────────
// Settles the payment and every open installment. payment.realized is
// published only on the transition into paid.

func (s *paymentService) MarkPaid(ctx context.Context, paymentID uuid.UUID, req dto.MarkPaidRequest) (*PaymentResult, error) {
	paidAt := paidDate(req)
	res := &PaymentResult{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.payments.LockByIDTx(tx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentCancelled:
			return apierror.ErrPaymentCancelled
		case model.PaymentPaid:
			return nil
		}

		installments, err := s.payments.ListInstallmentsTx(tx, p.ID)
		if err != nil {
			return err
		}
		for i := range installments {
			inst := &installments[i]
			if inst.Status == model.InstallmentPaid {
				continue
			}
			amount := inst.Amount
			inst.Status = model.InstallmentPaid
			inst.PaidAmount = &amount
			inst.PaidDate = &paidAt
			if err := s.payments.SaveInstallmentTx(tx, inst); err != nil {
				return err
			}
		}

		total := p.TotalAmount
		p.Status = model.PaymentPaid
		p.PaidAmount = &total
		p.PaidDate = &paidAt
		if err := s.payments.SaveTx(tx, p); err != nil {
			return err
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Payment, err = s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		res.Warnings = s.realized(ctx, res.Payment)
	}
	return res, nil
}

// ── MarkInstallmentPaid ──────────────────────────────────────────────────────
// Locks payment then installment. The payment follows its installments:
// all paid → paid (and payment.realized), any overdue → overdue, else pending.

func (s *paymentService) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, req dto.MarkPaidRequest) (*PaymentResult, error) {
	paidAt := paidDate(req)
	var (
		paymentID uuid.UUID
		number    int
		amount    decimal.Decimal
		flipped   bool
	)
	found, err := s.payments.FindInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	paymentID = found.PaymentID

	res := &PaymentResult{}
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.payments.LockByIDTx(tx, paymentID)
		if err != nil {
			return err
		}
		inst, err := s.payments.LockInstallmentTx(tx, installmentID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentCancelled {
			return apierror.ErrPaymentCancelled
		}
		if inst.Status == model.InstallmentPaid {
			return nil
		}

		paid := inst.Amount
		inst.Status = model.InstallmentPaid
		inst.PaidAmount = &paid
		inst.PaidDate = &paidAt
		if err := s.payments.SaveInstallmentTx(tx, inst); err != nil {
			return err
		}
		number, amount = inst.Number, inst.Amount

		all, err := s.payments.ListInstallmentsTx(tx, p.ID)
		if err != nil {
			return err
		}
		prev := p.Status
		applyInstallmentState(p, all, paidAt)
		if err := s.payments.SaveTx(tx, p); err != nil {
			return err
		}
		flipped = prev != model.PaymentPaid && p.Status == model.PaymentPaid
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Payment, err = s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		res.Warnings = publish(ctx, s.events, event.New(event.InstallmentPaid, installmentID, map[string]any{
			"payment_id": paymentID.String(),
			"order_id":   res.Payment.OrderID.String(),
			"number":     number,
			"amount":     amount.StringFixed(2),
		}))
	}
	if flipped {
		res.Warnings = append(res.Warnings, s.realized(ctx, res.Payment)...)
	}
	return res, nil
}

// applyInstallmentState derives the payment status and paid amount from its
// installments.
func applyInstallmentState(p *model.Payment, installments []model.Installment, paidAt time.Time) {
	paid := decimal.Zero
	allPaid, anyOverdue := true, false
	for _, inst := range installments {
		switch inst.Status {
		case model.InstallmentPaid:
			if inst.PaidAmount != nil {
				paid = paid.Add(*inst.PaidAmount)
			} else {
				paid = paid.Add(inst.Amount)
			}
		case model.InstallmentOverdue:
			anyOverdue = true
			allPaid = false
		default:
			allPaid = false
		}
	}
	switch {
	case allPaid:
		total := p.TotalAmount
		p.Status = model.PaymentPaid
		p.PaidAmount = &total
		p.PaidDate = &paidAt
	case anyOverdue:
		p.Status = model.PaymentOverdue
		p.PaidAmount = &paid
	default:
		p.Status = model.PaymentPending
		p.PaidAmount = &paid
	}
}

// ── MarkOverdue ──────────────────────────────────────────────────────────────
// Pending installments past due become overdue, and so do their payments.
// Payments without installments go overdue on their own due date.
// Returns how many payments moved to overdue.

func (s *paymentService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	moved := 0
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		moved = 0
		candidates, err := s.payments.ListOverdueCandidatesTx(tx, now)
		if err != nil {
			return err
		}
		for i := range candidates {
			p := &candidates[i]
			installments, err := s.payments.ListInstallmentsTx(tx, p.ID)
			if err != nil {
				return err
			}

			late := len(installments) == 0 && p.DueDate != nil && p.DueDate.Before(now)
			for j := range installments {
				inst := &installments[j]
				if inst.Status == model.InstallmentPending && inst.DueDate.Before(now) {
					inst.Status = model.InstallmentOverdue
					if err := s.payments.SaveInstallmentTx(tx, inst); err != nil {
						return err
					}
				}
				if inst.Status == model.InstallmentOverdue {
					late = true
				}
			}

			if late && p.Status != model.PaymentOverdue {
				p.Status = model.PaymentOverdue
				if err := s.payments.SaveTx(tx, p); err != nil {
					return err
				}
				moved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		log.Info().Int("payments", moved).Msg("payments marked overdue")
	}
	return moved, nil
}

// ── Cancel ───────────────────────────────────────────────────────────────────
// Frees the order for a new payment. Paid money is never cancelled.

func (s *paymentService) Cancel(ctx context.Context, paymentID uuid.UUID) (*PaymentResult, error) {
	res := &PaymentResult{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.payments.LockByIDTx(tx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentCancelled:
			return nil
		case model.PaymentPaid:
			return apierror.ErrPaymentAlreadyPaid.WithMessage("paid payments cannot be cancelled")
		}
		installments, err := s.payments.ListInstallmentsTx(tx, p.ID)
		if err != nil {
			return err
		}
		for _, inst := range installments {
			if inst.Status == model.InstallmentPaid {
				return apierror.ErrPaymentAlreadyPaid.WithMessage("payment has paid installments and cannot be cancelled")
			}
		}
		p.Status = model.PaymentCancelled
		if err := s.payments.SaveTx(tx, p); err != nil {
			return err
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Payment, err = s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *paymentService) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.payments.FindByID(ctx, id)
}

func (s *paymentService) GetByOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	return s.payments.FindActiveByOrder(ctx, orderID)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *paymentService) realized(ctx context.Context, p *model.Payment) []string {
	payload := map[string]any{
		"order_id":  p.OrderID.String(),
		"client_id": p.ClientID.String(),
		"amount":    p.TotalAmount.StringFixed(2),
		"method":    string(p.Method),
		"plan":      p.PlanLabel(),
	}
	return publish(ctx, s.events, event.New(event.PaymentRealized, p.ID, payload))
}

func paidDate(req dto.MarkPaidRequest) time.Time {
	if req.PaidDate != nil {
		return req.PaidDate.UTC()
	}
	return time.Now().UTC()
}
