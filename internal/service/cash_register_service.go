package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/model"
	"oficina/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashRegisterService interface {
	Open(ctx context.Context, openedBy uuid.UUID, req dto.OpenRegisterRequest) (*model.CashRegister, error)
	PostMovement(ctx context.Context, registerID uuid.UUID, userID *uuid.UUID, req dto.PostMovementRequest) (*model.CashMovement, error)
	ReverseMovement(ctx context.Context, movementID uuid.UUID, userID *uuid.UUID) (*model.CashMovement, error)
	Close(ctx context.Context, registerID, closedBy uuid.UUID, req dto.CloseRegisterRequest) (*model.CashRegister, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	GetOpen(ctx context.Context, establishmentID uuid.UUID) (*model.CashRegister, error)
	ListMovements(ctx context.Context, registerID uuid.UUID) ([]model.CashMovement, error)
}

type cashRegisterService struct {
	store *repository.Store
	repo  repository.CashRegisterRepository
}

func NewCashRegisterService(store *repository.Store, repo repository.CashRegisterRepository) CashRegisterService {
	return &cashRegisterService{store: store, repo: repo}
}

// ── Open ─────────────────────────────────────────────────────────────────────
// One open register per establishment. The partial unique index backs the
// check when two opens race.

func (s *cashRegisterService) Open(ctx context.Context, openedBy uuid.UUID, req dto.OpenRegisterRequest) (*model.CashRegister, error) {
	if req.EstablishmentID == uuid.Nil {
		return nil, apierror.Validation("establishment_id", "establishment is required")
	}
	if req.OpeningBalance.IsNegative() {
		return nil, apierror.Validation("opening_balance", "opening balance cannot be negative")
	}

	reg := &model.CashRegister{
		EstablishmentID: req.EstablishmentID,
		Status:          model.RegisterOpen,
		OpeningBalance:  req.OpeningBalance.Round(2),
		EntriesTotal:    decimal.Zero,
		ExitsTotal:      decimal.Zero,
		RevenueTotal:    decimal.Zero,
		OpenedBy:        openedBy,
	}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindOpenByEstablishmentTx(tx, req.EstablishmentID); err == nil {
			return apierror.ErrRegisterAlreadyOpen
		} else if !apierror.IsNotFound(err) {
			return err
		}
		if err := s.repo.CreateTx(tx, reg); err != nil {
			if repository.IsUniqueViolation(err) {
				return apierror.ErrRegisterAlreadyOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("cash_register_id", reg.ID.String()).
		Str("establishment_id", reg.EstablishmentID.String()).
		Str("opening_balance", reg.OpeningBalance.StringFixed(2)).
		Msg("cash register opened")
	return reg, nil
}

// ── PostMovement ─────────────────────────────────────────────────────────────
// Exits larger than the balance are accepted: a shortfall is recorded, not
// prevented.

func (s *cashRegisterService) PostMovement(ctx context.Context, registerID uuid.UUID, userID *uuid.UUID, req dto.PostMovementRequest) (*model.CashMovement, error) {
	typ := model.MovementType(req.Type)
	if !typ.Valid() {
		return nil, apierror.Validation("type", "type must be entry or exit")
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apierror.Validation("amount", "amount must be greater than zero")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apierror.Validation("description", "description is required")
	}

	var mov *model.CashMovement
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		reg, err := s.repo.LockByIDTx(tx, registerID)
		if err != nil {
			return err
		}
		if !reg.IsOpen() {
			return apierror.ErrRegisterClosed
		}
		mov, err = s.post(tx, reg, typ, amount, desc, userID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// ── ReverseMovement ──────────────────────────────────────────────────────────
// History is never edited: a correction is the opposite movement pointing at
// the original. Each movement is reversed at most once; reversals are final.

func (s *cashRegisterService) ReverseMovement(ctx context.Context, movementID uuid.UUID, userID *uuid.UUID) (*model.CashMovement, error) {
	var mov *model.CashMovement
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		orig, err := s.repo.FindMovementTx(tx, movementID)
		if err != nil {
			return err
		}
		reg, err := s.repo.LockByIDTx(tx, orig.CashRegisterID)
		if err != nil {
			return err
		}
		if !reg.IsOpen() {
			return apierror.ErrRegisterClosed
		}
		if orig.ReversesID != nil {
			return apierror.ErrMovementAlreadyReversed.WithMessage("a reversal cannot be reversed")
		}
		if _, err := s.repo.FindReversalTx(tx, orig.ID); err == nil {
			return apierror.ErrMovementAlreadyReversed
		} else if !apierror.IsNotFound(err) {
			return err
		}

		desc := fmt.Sprintf("reversal: %s", orig.Description)
		mov, err = s.post(tx, reg, orig.Type.Opposite(), orig.Amount, desc, userID, &orig.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// post appends the movement and moves the running totals of the locked
// register, then re-reads the row and checks the balance moved by amount.
func (s *cashRegisterService) post(tx *gorm.DB, reg *model.CashRegister, typ model.MovementType, amount decimal.Decimal, desc string, userID, reverses *uuid.UUID) (*model.CashMovement, error) {
	prior := reg.Balance()
	mov := &model.CashMovement{
		CashRegisterID: reg.ID,
		Type:           typ,
		Amount:         amount,
		PriorBalance:   prior,
		Description:    desc,
		UserID:         userID,
		ReversesID:     reverses,
	}
	if err := s.repo.CreateMovementTx(tx, mov); err != nil {
		return nil, err
	}

	entries, exits := reg.EntriesTotal, reg.ExitsTotal
	want := prior
	if typ == model.MovementEntry {
		entries = entries.Add(amount)
		want = want.Add(amount)
	} else {
		exits = exits.Add(amount)
		want = want.Sub(amount)
	}
	if err := s.repo.UpdateTotalsTx(tx, reg.ID, entries, exits); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByIDTx(tx, reg.ID)
	if err != nil {
		return nil, err
	}
	if diverges(after.Balance(), want) {
		log.Error().
			Str("cash_register_id", reg.ID.String()).
			Str("expected_balance", want.String()).
			Str("stored_balance", after.Balance().String()).
			Msg("CONSISTENCY VIOLATION: register balance diverges after posting")
		return nil, apierror.ErrConsistency.WithMessage("register balance diverges after posting")
	}
	return mov, nil
}

// ── Close ────────────────────────────────────────────────────────────────────
// Terminal. The difference is declared − balance, classified by its share of
// the expected balance.

func (s *cashRegisterService) Close(ctx context.Context, registerID, closedBy uuid.UUID, req dto.CloseRegisterRequest) (*model.CashRegister, error) {
	if req.DeclaredAmount.IsNegative() {
		return nil, apierror.Validation("declared_amount", "declared amount cannot be negative")
	}
	declared := req.DeclaredAmount.Round(2)

	var reg *model.CashRegister
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		reg, err = s.repo.LockByIDTx(tx, registerID)
		if err != nil {
			return err
		}
		if !reg.IsOpen() {
			return apierror.ErrRegisterClosed
		}

		balance := reg.Balance()
		diff := declared.Sub(balance)
		class := ClassifyDifference(diff, balance)
		now := time.Now().UTC()

		reg.Status = model.RegisterClosed
		reg.ClosedBy = &closedBy
		reg.ClosedAt = &now
		reg.DeclaredClosingAmount = &declared
		reg.ClosingDifference = &diff
		reg.DifferenceClass = &class
		return s.repo.CloseTx(tx, reg)
	})
	if err != nil {
		return nil, err
	}

	ev := log.Info()
	if *reg.DifferenceClass == model.DifferenceCritical {
		ev = log.Warn()
	}
	ev.Str("cash_register_id", reg.ID.String()).
		Str("balance", reg.Balance().StringFixed(2)).
		Str("declared", reg.DeclaredClosingAmount.StringFixed(2)).
		Str("difference", reg.ClosingDifference.StringFixed(2)).
		Str("class", string(*reg.DifferenceClass)).
		Msg("cash register closed")
	return reg, nil
}

var (
	onePercent   = decimal.NewFromInt(1)
	fivePercent  = decimal.NewFromInt(5)
	hundredTimes = decimal.NewFromInt(100)
)

// ClassifyDifference grades |diff| as a percentage of the expected balance:
// ≤1% normal, ≤5% warning, above critical. With a zero balance any
// difference is critical.
func ClassifyDifference(diff, balance decimal.Decimal) model.DifferenceClass {
	if diff.IsZero() {
		return model.DifferenceNormal
	}
	if balance.IsZero() {
		return model.DifferenceCritical
	}
	pct := diff.Abs().Div(balance.Abs()).Mul(hundredTimes)
	switch {
	case pct.LessThanOrEqual(onePercent):
		return model.DifferenceNormal
	case pct.LessThanOrEqual(fivePercent):
		return model.DifferenceWarning
	default:
		return model.DifferenceCritical
	}
}

// ── Read models ──────────────────────────────────────────────────────────────

func (s *cashRegisterService) Get(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *cashRegisterService) GetOpen(ctx context.Context, establishmentID uuid.UUID) (*model.CashRegister, error) {
	return s.repo.FindOpenByEstablishment(ctx, establishmentID)
}

func (s *cashRegisterService) ListMovements(ctx context.Context, registerID uuid.UUID) ([]model.CashMovement, error) {
	if _, err := s.repo.FindByID(ctx, registerID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, registerID)
}
