package repository

import (
	"context"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
	FindActiveByOrderTx(tx *gorm.DB, orderID uuid.UUID) (*model.Payment, error)
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Payment, error)
	CreateTx(tx *gorm.DB, p *model.Payment) error
	SaveTx(tx *gorm.DB, p *model.Payment) error

	ReplaceInstallmentsTx(tx *gorm.DB, paymentID uuid.UUID, installments []model.Installment) error
	FindInstallment(ctx context.Context, id uuid.UUID) (*model.Installment, error)
	ListInstallmentsTx(tx *gorm.DB, paymentID uuid.UUID) ([]model.Installment, error)
	LockInstallmentTx(tx *gorm.DB, id uuid.UUID) (*model.Installment, error)
	SaveInstallmentTx(tx *gorm.DB, inst *model.Installment) error

	ListOverdueCandidatesTx(tx *gorm.DB, now time.Time) ([]model.Payment, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func withInstallments(db *gorm.DB) *gorm.DB {
	return db.Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") })
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := withInstallments(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrPaymentNotFound)
	}
	return &p, nil
}

func (r *paymentRepo) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	return r.FindActiveByOrderTx(r.db.WithContext(ctx), orderID)
}

// FindActiveByOrderTx returns the order's non-cancelled payment.
func (r *paymentRepo) FindActiveByOrderTx(tx *gorm.DB, orderID uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := withInstallments(tx).
		Where("order_id = ? AND status <> ?", orderID, model.PaymentCancelled).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, apierror.ErrPaymentNotFound)
	}
	return &p, nil
}

func (r *paymentRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := tx.Clauses(forUpdate).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrPaymentNotFound)
	}
	return &p, nil
}

func (r *paymentRepo) CreateTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *paymentRepo) SaveTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Omit(clause.Associations).Save(p).Error
}

// ReplaceInstallmentsTx deletes the payment's schedule and inserts the new one.
func (r *paymentRepo) ReplaceInstallmentsTx(tx *gorm.DB, paymentID uuid.UUID, installments []model.Installment) error {
	if err := tx.Where("payment_id = ?", paymentID).Delete(&model.Installment{}).Error; err != nil {
		return err
	}
	if len(installments) == 0 {
		return nil
	}
	return tx.Create(&installments).Error
}

func (r *paymentRepo) FindInstallment(ctx context.Context, id uuid.UUID) (*model.Installment, error) {
	var inst model.Installment
	if err := r.db.WithContext(ctx).First(&inst, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrInstallmentNotFound)
	}
	return &inst, nil
}

func (r *paymentRepo) ListInstallmentsTx(tx *gorm.DB, paymentID uuid.UUID) ([]model.Installment, error) {
	var list []model.Installment
	err := tx.Where("payment_id = ?", paymentID).Order("number ASC").Find(&list).Error
	return list, err
}

func (r *paymentRepo) LockInstallmentTx(tx *gorm.DB, id uuid.UUID) (*model.Installment, error) {
	var inst model.Installment
	if err := tx.Clauses(forUpdate).First(&inst, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrInstallmentNotFound)
	}
	return &inst, nil
}

func (r *paymentRepo) SaveInstallmentTx(tx *gorm.DB, inst *model.Installment) error {
	return tx.Save(inst).Error
}

// ListOverdueCandidatesTx locks payments still awaiting money whose own due
// date or one of whose installments' due dates is before now. Installments
// are not preloaded.
func (r *paymentRepo) ListOverdueCandidatesTx(tx *gorm.DB, now time.Time) ([]model.Payment, error) {
	var list []model.Payment
	late := tx.Model(&model.Installment{}).
		Select("payment_id").
		Where("status = ? AND due_date < ?", model.InstallmentPending, now)
	err := tx.Clauses(forUpdate).
		Where("status IN ?", []model.PaymentStatus{model.PaymentPending, model.PaymentOverdue}).
		Where(tx.Where("due_date < ?", now).Or("id IN (?)", late)).
		Order("id ASC").
		Find(&list).Error
	return list, err
}
