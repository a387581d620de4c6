package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesKindAndCode(t *testing.T) {
	wrapped := fmt.Errorf("add item: %w", ErrDuplicateService.WithMessage("brake service already on order"))
	assert.True(t, errors.Is(wrapped, ErrDuplicateService))
	assert.False(t, errors.Is(wrapped, ErrOrderClosed))
	assert.True(t, IsConflict(wrapped))

	cause := errors.New("deadlock detected")
	c := ErrConcurrency.Wrap(cause)
	assert.True(t, errors.Is(c, ErrConcurrency))
	assert.True(t, errors.Is(c, cause))
	assert.True(t, IsConcurrency(c))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("quantity", "must be positive"), http.StatusUnprocessableEntity},
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrRegisterClosed, http.StatusConflict},
		{ErrConcurrency, http.StatusServiceUnavailable},
		{ErrConsistency, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestFromError_HidesInternalDetail(t *testing.T) {
	got := FromError(ErrPaymentAlreadyPaid)
	assert.Equal(t, "payment_already_paid", got.Code)
	assert.Equal(t, "payment is already paid", got.Detail)

	raw := FromError(errors.New(`pq: relation "orders" does not exist`))
	assert.Equal(t, "internal server error", raw.Detail)
	assert.Empty(t, raw.Code)

	cons := FromError(Consistency("order total 10.00 != 12.00"))
	assert.Equal(t, "internal server error", cons.Detail)
}
