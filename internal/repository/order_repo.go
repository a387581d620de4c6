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

// OrderRepository covers orders, their items and their part requests.
// Methods taking tx run inside the caller's transaction.
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	UpdateTotalsTx(tx *gorm.DB, id uuid.UUID, t model.Totals) error
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, responsibleID *uuid.UUID, closedAt *time.Time) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	LockItemsTx(tx *gorm.DB, orderID, catalogItemID uuid.UUID) ([]model.OrderItem, error)
	LockItemTx(tx *gorm.DB, orderID, itemID uuid.UUID) (*model.OrderItem, error)
	ListActiveItemsTx(tx *gorm.DB, orderID uuid.UUID) ([]model.OrderItem, error)
	CreateItemTx(tx *gorm.DB, it *model.OrderItem) error
	ResizeItemTx(tx *gorm.DB, it *model.OrderItem) error
	DeleteItemsTx(tx *gorm.DB, ids []uuid.UUID) error

	CreatePartRequestTx(tx *gorm.DB, pr *model.PartRequest) error
	FindPartRequestTx(tx *gorm.DB, id uuid.UUID) (*model.PartRequest, error)
	LockPartRequestTx(tx *gorm.DB, id uuid.UUID) (*model.PartRequest, error)
	ClosePartRequestTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
	CountOpenPartRequestsTx(tx *gorm.DB, orderID uuid.UUID) (int64, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *orderRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	return r.find(tx, id)
}

func (r *orderRepo) find(db *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := db.
		Preload("Items", "status = ?", model.ItemActive, func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("PartRequests", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, apierror.ErrOrderNotFound)
	}
	return &o, nil
}

// LockByIDTx takes the order row lock. Every mutation touching an order's
// items or totals takes it first, so item locks never invert.
func (r *orderRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := tx.Clauses(forUpdate).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrOrderNotFound)
	}
	return &o, nil
}

func (r *orderRepo) UpdateTotalsTx(tx *gorm.DB, id uuid.UUID, t model.Totals) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(map[string]any{
		"subtotal":   t.Subtotal,
		"discount":   t.Discount,
		"surcharge":  t.Surcharge,
		"total":      t.Total,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (r *orderRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, responsibleID *uuid.UUID, closedAt *time.Time) error {
	fields := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if responsibleID != nil {
		fields["responsible_id"] = *responsibleID
	}
	if closedAt != nil {
		fields["closed_at"] = *closedAt
	}
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteTx removes the order with its items and part requests.
func (r *orderRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", id).Delete(&model.PartRequest{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Order{}, "id = ?", id).Error
}

// LockItemsTx locks the active rows of one (order, catalog item) pair in
// primary key order.
func (r *orderRepo) LockItemsTx(tx *gorm.DB, orderID, catalogItemID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := tx.Clauses(forUpdate).
		Where("order_id = ? AND catalog_item_id = ? AND status = ?", orderID, catalogItemID, model.ItemActive).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *orderRepo) LockItemTx(tx *gorm.DB, orderID, itemID uuid.UUID) (*model.OrderItem, error) {
	var it model.OrderItem
	err := tx.Clauses(forUpdate).
		Where("id = ? AND order_id = ? AND status = ?", itemID, orderID, model.ItemActive).
		First(&it).Error
	if err != nil {
		return nil, notFound(err, apierror.ErrOrderItemNotFound)
	}
	return &it, nil
}

func (r *orderRepo) ListActiveItemsTx(tx *gorm.DB, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := tx.Where("order_id = ? AND status = ?", orderID, model.ItemActive).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *orderRepo) CreateItemTx(tx *gorm.DB, it *model.OrderItem) error {
	return tx.Create(it).Error
}

func (r *orderRepo) ResizeItemTx(tx *gorm.DB, it *model.OrderItem) error {
	return tx.Model(&model.OrderItem{}).Where("id = ?", it.ID).Updates(map[string]any{
		"quantity":   it.Quantity,
		"total":      it.Total,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (r *orderRepo) DeleteItemsTx(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id IN ?", ids).Delete(&model.OrderItem{}).Error
}

func (r *orderRepo) CreatePartRequestTx(tx *gorm.DB, pr *model.PartRequest) error {
	return tx.Create(pr).Error
}

func (r *orderRepo) FindPartRequestTx(tx *gorm.DB, id uuid.UUID) (*model.PartRequest, error) {
	var pr model.PartRequest
	if err := tx.First(&pr, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrPartRequestNotFound)
	}
	return &pr, nil
}

func (r *orderRepo) LockPartRequestTx(tx *gorm.DB, id uuid.UUID) (*model.PartRequest, error) {
	var pr model.PartRequest
	if err := tx.Clauses(forUpdate).First(&pr, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrPartRequestNotFound)
	}
	return &pr, nil
}

func (r *orderRepo) ClosePartRequestTx(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return tx.Model(&model.PartRequest{}).Where("id = ?", id).Updates(map[string]any{
		"status":    model.PartRequestClosed,
		"closed_at": at,
	}).Error
}

func (r *orderRepo) CountOpenPartRequestsTx(tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.PartRequest{}).
		Where("order_id = ? AND status = ?", orderID, model.PartRequestOpen).
		Count(&n).Error
	return n, err
}
