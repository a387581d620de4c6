package repository

import (
	"context"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashRegisterRepository has no update or delete path for movements.
type CashRegisterRepository interface {
	CreateTx(tx *gorm.DB, r *model.CashRegister) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegister, error)
	FindOpenByEstablishment(ctx context.Context, establishmentID uuid.UUID) (*model.CashRegister, error)
	FindOpenByEstablishmentTx(tx *gorm.DB, establishmentID uuid.UUID) (*model.CashRegister, error)
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegister, error)
	UpdateTotalsTx(tx *gorm.DB, id uuid.UUID, entries, exits decimal.Decimal) error
	UpdateRevenueTx(tx *gorm.DB, id uuid.UUID, revenueTotal decimal.Decimal) error
	CloseTx(tx *gorm.DB, r *model.CashRegister) error

	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	FindMovementTx(tx *gorm.DB, id uuid.UUID) (*model.CashMovement, error)
	FindReversalTx(tx *gorm.DB, movementID uuid.UUID) (*model.CashMovement, error)
	ListMovements(ctx context.Context, registerID uuid.UUID) ([]model.CashMovement, error)
}

type cashRegisterRepo struct{ db *gorm.DB }

func NewCashRegisterRepository(db *gorm.DB) CashRegisterRepository {
	return &cashRegisterRepo{db: db}
}

func (r *cashRegisterRepo) CreateTx(tx *gorm.DB, reg *model.CashRegister) error {
	return tx.Omit("Movements").Create(reg).Error
}

func (r *cashRegisterRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *cashRegisterRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	if err := tx.First(&reg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrRegisterNotFound)
	}
	return &reg, nil
}

func (r *cashRegisterRepo) FindOpenByEstablishment(ctx context.Context, establishmentID uuid.UUID) (*model.CashRegister, error) {
	return r.FindOpenByEstablishmentTx(r.db.WithContext(ctx), establishmentID)
}

func (r *cashRegisterRepo) FindOpenByEstablishmentTx(tx *gorm.DB, establishmentID uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	err := tx.Where("establishment_id = ? AND status = ?", establishmentID, model.RegisterOpen).First(&reg).Error
	if err != nil {
		return nil, notFound(err, apierror.ErrRegisterNotFound)
	}
	return &reg, nil
}

func (r *cashRegisterRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	if err := tx.Clauses(forUpdate).First(&reg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrRegisterNotFound)
	}
	return &reg, nil
}

// UpdateTotalsTx writes the running totals. The caller holds the row lock and
// computed the new values from the locked row.
func (r *cashRegisterRepo) UpdateTotalsTx(tx *gorm.DB, id uuid.UUID, entries, exits decimal.Decimal) error {
	return tx.Model(&model.CashRegister{}).Where("id = ?", id).Updates(map[string]any{
		"entries_total": entries,
		"exits_total":   exits,
	}).Error
}

func (r *cashRegisterRepo) UpdateRevenueTx(tx *gorm.DB, id uuid.UUID, revenueTotal decimal.Decimal) error {
	return tx.Model(&model.CashRegister{}).Where("id = ?", id).Update("revenue_total", revenueTotal).Error
}

func (r *cashRegisterRepo) CloseTx(tx *gorm.DB, reg *model.CashRegister) error {
	return tx.Model(&model.CashRegister{}).Where("id = ? AND status = ?", reg.ID, model.RegisterOpen).Updates(map[string]any{
		"status":                  model.RegisterClosed,
		"closed_by":               reg.ClosedBy,
		"closed_at":               reg.ClosedAt,
		"declared_closing_amount": reg.DeclaredClosingAmount,
		"closing_difference":      reg.ClosingDifference,
		"difference_class":        reg.DifferenceClass,
	}).Error
}

func (r *cashRegisterRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return tx.Create(m).Error
}

func (r *cashRegisterRepo) FindMovementTx(tx *gorm.DB, id uuid.UUID) (*model.CashMovement, error) {
	var m model.CashMovement
	if err := tx.First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrMovementNotFound)
	}
	return &m, nil
}

// FindReversalTx returns the movement compensating movementID, or
// ErrMovementNotFound when it was never reversed.
func (r *cashRegisterRepo) FindReversalTx(tx *gorm.DB, movementID uuid.UUID) (*model.CashMovement, error) {
	var m model.CashMovement
	if err := tx.Where("reverses_id = ?", movementID).First(&m).Error; err != nil {
		return nil, notFound(err, apierror.ErrMovementNotFound)
	}
	return &m, nil
}

func (r *cashRegisterRepo) ListMovements(ctx context.Context, registerID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).Where("cash_register_id = ?", registerID).Order("id ASC").Find(&movs).Error
	return movs, err
}
