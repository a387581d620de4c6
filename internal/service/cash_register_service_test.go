package service_test

import (
	"context"
	"errors"
	"testing"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/model"
	"oficina/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashRegister_OpenPostClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment, OpeningBalance: dec("50.00")})
	require.NoError(t, err)

	in, err := f.registers.PostMovement(ctx, reg.ID, &f.user, dto.PostMovementRequest{Type: "entry", Amount: dec("30.00"), Description: "troco"})
	require.NoError(t, err)
	assert.True(t, in.PriorBalance.Equal(dec("50.00")))

	out, err := f.registers.PostMovement(ctx, reg.ID, &f.user, dto.PostMovementRequest{Type: "exit", Amount: dec("10.00"), Description: "café"})
	require.NoError(t, err)
	assert.True(t, out.PriorBalance.Equal(dec("80.00")))

	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(dec("70.00")))

	closed, err := f.registers.Close(ctx, reg.ID, f.user, dto.CloseRegisterRequest{DeclaredAmount: dec("65.00")})
	require.NoError(t, err)
	assert.Equal(t, model.RegisterClosed, closed.Status)
	require.NotNil(t, closed.ClosingDifference)
	assert.True(t, closed.ClosingDifference.Equal(dec("-5.00")))
	require.NotNil(t, closed.DifferenceClass)
	assert.Equal(t, model.DifferenceCritical, *closed.DifferenceClass)

	_, err = f.registers.PostMovement(ctx, reg.ID, nil, dto.PostMovementRequest{Type: "entry", Amount: dec("1.00"), Description: "tarde"})
	assert.True(t, errors.Is(err, apierror.ErrRegisterClosed))
	_, err = f.registers.Close(ctx, reg.ID, f.user, dto.CloseRegisterRequest{DeclaredAmount: dec("65.00")})
	assert.True(t, errors.Is(err, apierror.ErrRegisterClosed))

	after, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance().Equal(dec("70.00")))
}

func TestCashRegister_OneOpenPerEstablishment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := dto.OpenRegisterRequest{EstablishmentID: f.establishment, OpeningBalance: dec("10.00")}

	first, err := f.registers.Open(ctx, f.user, req)
	require.NoError(t, err)
	_, err = f.registers.Open(ctx, f.user, req)
	assert.True(t, errors.Is(err, apierror.ErrRegisterAlreadyOpen))

	_, err = f.registers.Close(ctx, first.ID, f.user, dto.CloseRegisterRequest{DeclaredAmount: dec("10.00")})
	require.NoError(t, err)
	_, err = f.registers.Open(ctx, f.user, req)
	assert.NoError(t, err, "a new day opens after closing")

	open, err := f.registers.GetOpen(ctx, f.establishment)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, open.ID)
}

func TestCashRegister_ExitMayExceedBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment, OpeningBalance: dec("20.00")})
	require.NoError(t, err)

	_, err = f.registers.PostMovement(ctx, reg.ID, nil, dto.PostMovementRequest{Type: "exit", Amount: dec("35.00"), Description: "fornecedor"})
	require.NoError(t, err)
	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(dec("-15.00")))
}

func TestCashRegister_PostMovementValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment})
	require.NoError(t, err)

	for _, req := range []dto.PostMovementRequest{
		{Type: "transfer", Amount: dec("1"), Description: "x"},
		{Type: "entry", Amount: dec("0"), Description: "zero"},
		{Type: "entry", Amount: dec("0.001"), Description: "rounds to zero"},
		{Type: "exit", Amount: dec("-3"), Description: "negative"},
		{Type: "entry", Amount: dec("3"), Description: "   "},
	} {
		_, err := f.registers.PostMovement(ctx, reg.ID, nil, req)
		assert.True(t, apierror.IsValidation(err), "%+v: %v", req, err)
	}
	list, err := f.registers.ListMovements(ctx, reg.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCashRegister_ReverseMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.registers.Open(ctx, f.user, dto.OpenRegisterRequest{EstablishmentID: f.establishment, OpeningBalance: dec("100.00")})
	require.NoError(t, err)
	mv, err := f.registers.PostMovement(ctx, reg.ID, nil, dto.PostMovementRequest{Type: "exit", Amount: dec("40.00"), Description: "lançado errado"})
	require.NoError(t, err)

	rev, err := f.registers.ReverseMovement(ctx, mv.ID, &f.user)
	require.NoError(t, err)
	assert.Equal(t, model.MovementEntry, rev.Type)
	require.NotNil(t, rev.ReversesID)
	assert.Equal(t, mv.ID, *rev.ReversesID)
	assert.Equal(t, "reversal: lançado errado", rev.Description)

	got, err := f.registers.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(dec("100.00")))

	_, err = f.registers.ReverseMovement(ctx, mv.ID, nil)
	assert.True(t, errors.Is(err, apierror.ErrMovementAlreadyReversed))
	_, err = f.registers.ReverseMovement(ctx, rev.ID, nil)
	assert.True(t, errors.Is(err, apierror.ErrMovementAlreadyReversed))

	list, err := f.registers.ListMovements(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, mv.ID, list[0].ID)
}

func TestClassifyDifference(t *testing.T) {
	tests := []struct {
		diff, balance string
		want          model.DifferenceClass
	}{
		{"0", "0", model.DifferenceNormal},
		{"0", "500", model.DifferenceNormal},
		{"1.00", "100.00", model.DifferenceNormal},
		{"-1.01", "100.00", model.DifferenceWarning},
		{"5.00", "100.00", model.DifferenceWarning},
		{"-5.01", "100.00", model.DifferenceCritical},
		{"0.01", "0", model.DifferenceCritical},
	}
	for _, tt := range tests {
		got := service.ClassifyDifference(dec(tt.diff), dec(tt.balance))
		assert.Equal(t, tt.want, got, "diff %s balance %s", tt.diff, tt.balance)
	}
}
