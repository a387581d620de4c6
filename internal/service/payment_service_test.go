package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/event"
	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestConfigure_FourInstallmentsMonthStepped(t *testing.T) {
	f := newFixture(t)
	o := f.orderWithTotal(t, "100.00")
	due := date(2024, time.January, 1)

	res, err := f.payments.Configure(context.Background(), o.ID, dto.ConfigurePaymentRequest{
		Method:       "credit",
		Installments: dto.Installments(4),
		DueDate:      &due,
	})
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, model.PaymentPending, p.Status)
	require.NotNil(t, p.InstallmentCount)
	assert.Equal(t, 4, *p.InstallmentCount)
	assert.Equal(t, "4x", p.PlanLabel())
	require.Len(t, p.Installments, 4)
	for i, inst := range p.Installments {
		assert.Equal(t, i+1, inst.Number)
		assert.True(t, inst.Amount.Equal(dec("25.00")), "installment %d amount %s", inst.Number, inst.Amount)
		assert.Equal(t, date(2024, time.Month(i+1), 1), inst.DueDate.UTC())
	}
	assert.Zero(t, f.events.Count(event.PaymentRealized))
}

func TestConfigure_FullIsPaidImmediately(t *testing.T) {
	f := newFixture(t)
	o := f.orderWithTotal(t, "100.00")

	res, err := f.payments.Configure(context.Background(), o.ID, dto.ConfigurePaymentRequest{
		Method:       "pix",
		Installments: dto.FullPlan(),
		Discount:     decPtr("10.00"),
		Surcharge:    decPtr("2.50"),
	})
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, model.PaymentPaid, p.Status)
	assert.Nil(t, p.InstallmentCount)
	assert.Equal(t, "à vista", p.PlanLabel())
	assert.True(t, p.TotalAmount.Equal(dec("92.50")))
	require.NotNil(t, p.PaidAmount)
	assert.True(t, p.PaidAmount.Equal(dec("92.50")))
	assert.Empty(t, p.Installments)

	// Adjustments flow through the order totals too.
	got := f.reload(t, o.ID)
	assert.True(t, got.Total.Equal(dec("92.50")))
	assert.Equal(t, 1, f.events.Count(event.PaymentRealized))
}

func TestConfigure_OmittedPlanPaysInFull(t *testing.T) {
	f := newFixture(t)
	o := f.orderWithTotal(t, "70.00")

	res, err := f.payments.Configure(context.Background(), o.ID, dto.ConfigurePaymentRequest{Method: "debit"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, res.Payment.Status)
	assert.Nil(t, res.Payment.InstallmentCount)
	require.NotNil(t, res.Payment.PaidAmount)
	assert.True(t, res.Payment.PaidAmount.Equal(dec("70.00")))
}

func TestConfigure_SingleInstallmentHasNoSchedule(t *testing.T) {
	f := newFixture(t)
	o := f.orderWithTotal(t, "60.00")

	res, err := f.payments.Configure(context.Background(), o.ID, dto.ConfigurePaymentRequest{Method: "bank_slip", Installments: dto.Installments(1)})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)
	assert.Equal(t, "1x", res.Payment.PlanLabel())
	assert.Empty(t, res.Payment.Installments)
}

func TestConfigure_ReplacesPreviousPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "90.00")
	due := date(2024, time.March, 31)

	first, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(6), DueDate: &due})
	require.NoError(t, err)
	second, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(3), DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)

	p, err := f.payments.GetByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, p.Installments, 3)
	assert.True(t, p.Installments[0].Amount.Equal(dec("30.00")))
	assert.Equal(t, date(2024, time.April, 30), p.Installments[1].DueDate.UTC())
	assert.EqualValues(t, 1, f.countPayments(t, o.ID))

	var rows int64
	require.NoError(t, f.db.Model(&model.Installment{}).Where("payment_id = ?", p.ID).Count(&rows).Error)
	assert.EqualValues(t, 3, rows)
}

func TestConfigure_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "10.00")

	tests := []struct {
		name string
		req  dto.ConfigurePaymentRequest
	}{
		{"pending method", dto.ConfigurePaymentRequest{Method: "pending", Installments: dto.FullPlan()}},
		{"unknown method", dto.ConfigurePaymentRequest{Method: "barter", Installments: dto.FullPlan()}},
		{"zero installments", dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(0)}},
		{"too many installments", dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(25)}},
		{"negative discount", dto.ConfigurePaymentRequest{Method: "cash", Installments: dto.FullPlan(), Discount: decPtr("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.Configure(ctx, o.ID, tt.req)
			assert.True(t, apierror.IsValidation(err), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, f.countPayments(t, o.ID))
}

func TestConfigure_PaidPaymentIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "10.00")
	_, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "cash", Installments: dto.FullPlan()})
	require.NoError(t, err)

	_, err = f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(2)})
	assert.True(t, errors.Is(err, apierror.ErrPaymentAlreadyPaid))
}

func TestCreateOnFinalize_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "45.00")
	req := dto.CreatePaymentRequest{OrderID: o.ID, ClientID: o.ClientID, TotalAmount: o.Total}

	first, err := f.payments.CreateOnFinalize(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyExisted)

	second, err := f.payments.CreateOnFinalize(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExisted)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.EqualValues(t, 1, f.countPayments(t, o.ID))
}

func TestCreateOnFinalize_ClosedRegisterIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment})
	require.NoError(t, err)
	_, err = f.registers.Close(ctx, reg.ID, f.user, dto.CloseRegisterRequest{})
	require.NoError(t, err)
	o := f.orderWithTotal(t, "45.00")

	res, err := f.payments.CreateOnFinalize(ctx, dto.CreatePaymentRequest{OrderID: o.ID, ClientID: o.ClientID, TotalAmount: o.Total, CashRegisterID: &reg.ID})
	require.NoError(t, err)
	assert.Nil(t, res.Payment.CashRegisterID)

	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.RevenueTotal.IsZero())
}

func TestMarkPaid_PublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "120.00")
	due := date(2030, time.May, 10)
	cfg, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(3), DueDate: &due})
	require.NoError(t, err)

	paidOn := date(2030, time.May, 2)
	res, err := f.payments.MarkPaid(ctx, cfg.Payment.ID, dto.MarkPaidRequest{PaidDate: &paidOn})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, model.PaymentPaid, res.Payment.Status)
	for _, inst := range res.Payment.Installments {
		assert.Equal(t, model.InstallmentPaid, inst.Status)
	}

	res, err = f.payments.MarkPaid(ctx, cfg.Payment.ID, dto.MarkPaidRequest{})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, f.events.Count(event.PaymentRealized))
}

func TestMarkInstallmentPaid_LastOneSettlesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "100.00")
	due := date(2030, time.January, 31)
	cfg, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(3), DueDate: &due})
	require.NoError(t, err)
	insts := cfg.Payment.Installments
	require.Len(t, insts, 3)

	res, err := f.payments.MarkInstallmentPaid(ctx, insts[0].ID, dto.MarkPaidRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)
	require.NotNil(t, res.Payment.PaidAmount)
	assert.True(t, res.Payment.PaidAmount.Equal(dec("33.33")))

	// Paying the same installment again changes nothing.
	res, err = f.payments.MarkInstallmentPaid(ctx, insts[0].ID, dto.MarkPaidRequest{})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = f.payments.MarkInstallmentPaid(ctx, insts[1].ID, dto.MarkPaidRequest{})
	require.NoError(t, err)
	res, err = f.payments.MarkInstallmentPaid(ctx, insts[2].ID, dto.MarkPaidRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, res.Payment.Status)
	assert.True(t, res.Payment.PaidAmount.Equal(dec("100.00")))

	assert.Equal(t, 3, f.events.Count(event.InstallmentPaid))
	assert.Equal(t, 1, f.events.Count(event.PaymentRealized))
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := date(2024, time.June, 15)

	lateSchedule := f.orderWithTotal(t, "300.00")
	first := date(2024, time.May, 20)
	sched, err := f.payments.Configure(ctx, lateSchedule.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(3), DueDate: &first})
	require.NoError(t, err)

	lateSingle := f.orderWithTotal(t, "50.00")
	single := date(2024, time.June, 1)
	one, err := f.payments.Configure(ctx, lateSingle.ID, dto.ConfigurePaymentRequest{Method: "bank_slip", Installments: dto.Installments(1), DueDate: &single})
	require.NoError(t, err)

	onTime := f.orderWithTotal(t, "70.00")
	future := date(2024, time.July, 1)
	ok, err := f.payments.Configure(ctx, onTime.ID, dto.ConfigurePaymentRequest{Method: "bank_slip", Installments: dto.Installments(1), DueDate: &future})
	require.NoError(t, err)

	moved, err := f.payments.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	p, err := f.payments.Get(ctx, sched.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOverdue, p.Status)
	assert.Equal(t, model.InstallmentOverdue, p.Installments[0].Status)
	assert.Equal(t, model.InstallmentPending, p.Installments[1].Status, "due 2024-06-20")

	p, err = f.payments.Get(ctx, one.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOverdue, p.Status)

	p, err = f.payments.Get(ctx, ok.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)

	moved, err = f.payments.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, moved, "sweep is idempotent")
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orderWithTotal(t, "40.00")
	cfg, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "credit", Installments: dto.Installments(2)})
	require.NoError(t, err)

	res, err := f.payments.Cancel(ctx, cfg.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, res.Payment.Status)

	_, err = f.payments.MarkPaid(ctx, cfg.Payment.ID, dto.MarkPaidRequest{})
	assert.True(t, errors.Is(err, apierror.ErrPaymentCancelled))

	// The order is free for a new payment.
	again, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{Method: "cash", Installments: dto.FullPlan()})
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Payment.ID, again.Payment.ID)

	_, err = f.payments.Cancel(ctx, again.Payment.ID)
	assert.True(t, errors.Is(err, apierror.ErrPaymentAlreadyPaid))

	_, err = f.payments.Cancel(ctx, uuid.New())
	assert.True(t, errors.Is(err, apierror.ErrPaymentNotFound))
}

func TestConfigure_AdjustsCreditedRegisterRevenue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment})
	require.NoError(t, err)
	o := f.orderWithTotal(t, "100.00")
	f.walk(t, o.ID, model.OrderInProgress, model.OrderServicesFinished, model.OrderFinalized)

	res, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{
		Method:       string(model.MethodPix),
		Installments: dto.FullPlan(),
		Discount:     decPtr("40.00"),
	})
	require.NoError(t, err)
	assert.True(t, res.Payment.TotalAmount.Equal(dec("60.00")))
	assert.True(t, f.reload(t, o.ID).Total.Equal(dec("60.00")))

	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.RevenueTotal.Equal(dec("60.00")), "revenue %s", got.RevenueTotal)
}

func TestConfigure_ClosedRegisterFreezesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment})
	require.NoError(t, err)
	o := f.orderWithTotal(t, "100.00")
	f.walk(t, o.ID, model.OrderInProgress, model.OrderServicesFinished, model.OrderFinalized)
	_, err = f.registers.Close(ctx, reg.ID, f.user, dto.CloseRegisterRequest{})
	require.NoError(t, err)

	_, err = f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{
		Method:       string(model.MethodCash),
		Installments: dto.FullPlan(),
		Discount:     decPtr("40.00"),
	})
	assert.True(t, errors.Is(err, apierror.ErrRegisterClosed))
	assert.True(t, f.reload(t, o.ID).Total.Equal(dec("100.00")))
	p, err := f.payments.GetByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, p.TotalAmount.Equal(dec("100.00")))
	assert.Equal(t, model.PaymentGenerated, p.Status)

	// Same total: nothing moves, so the closed register is not in the way.
	res, err := f.payments.Configure(ctx, o.ID, dto.ConfigurePaymentRequest{
		Method:       string(model.MethodCash),
		Installments: dto.FullPlan(),
	})
	require.NoError(t, err)
	assert.True(t, res.Payment.TotalAmount.Equal(dec("100.00")))
	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.RevenueTotal.Equal(dec("100.00")))
}
