package service

import (
	"time"

	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuildInstallments splits total into n installments due one calendar month
// apart from firstDue. Each amount is total/n truncated to cents; the last
// installment absorbs the remainder so the amounts sum to total exactly.
func BuildInstallments(paymentID uuid.UUID, total decimal.Decimal, n int, firstDue time.Time) []model.Installment {
	if n <= 0 {
		return nil
	}
	base := total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	out := make([]model.Installment, n)
	allocated := decimal.Zero
	for i := 0; i < n; i++ {
		amount := base
		if i == n-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		out[i] = model.Installment{
			PaymentID: paymentID,
			Number:    i + 1,
			Amount:    amount,
			DueDate:   AddMonthsClamped(firstDue, i),
			Status:    model.InstallmentPending,
		}
	}
	return out
}

// AddMonthsClamped moves t forward by months calendar months, clamping the
// day to the last day of the target month (Jan 31 + 1 → Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := m + time.Month(months)
	last := time.Date(y, target+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(y, target, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
