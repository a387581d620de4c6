package service

import (
	"context"
	"strings"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/event"
	"oficina/internal/model"
	"oficina/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderService interface {
	Create(ctx context.Context, openedBy uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddItem(ctx context.Context, orderID uuid.UUID, req dto.AddItemRequest) (*model.OrderItem, error)
	AddAdHocItem(ctx context.Context, orderID uuid.UUID, req dto.AddAdHocItemRequest) (*model.OrderItem, error)
	// RemoveItem returns the remaining row, or nil when the last unit went away.
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.OrderItem, error)
	UpdateAdjustments(ctx context.Context, orderID uuid.UUID, req dto.AdjustmentsRequest) (model.Totals, error)

	Transition(ctx context.Context, orderID uuid.UUID, req dto.TransitionRequest) (*TransitionResult, error)
	OpenPartRequest(ctx context.Context, orderID uuid.UUID, req dto.OpenPartRequestRequest) (*model.PartRequest, error)
	ClosePartRequest(ctx context.Context, partRequestID uuid.UUID) (*model.PartRequest, error)
}

type orderService struct {
	store       *repository.Store
	orders      repository.OrderRepository
	catalog     repository.CatalogLookup
	registers   repository.CashRegisterRepository
	paymentRepo repository.PaymentRepository
	payments    PaymentService
	events      event.Publisher
}

func NewOrderService(
	store *repository.Store,
	orders repository.OrderRepository,
	catalog repository.CatalogLookup,
	registers repository.CashRegisterRepository,
	paymentRepo repository.PaymentRepository,
	payments PaymentService,
	events event.Publisher,
) OrderService {
	return &orderService{
		store:       store,
		orders:      orders,
		catalog:     catalog,
		registers:   registers,
		paymentRepo: paymentRepo,
		payments:    payments,
		events:      events,
	}
}

// ── Create / Get / Delete ────────────────────────────────────────────────────

func (s *orderService) Create(ctx context.Context, openedBy uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	if req.EstablishmentID == uuid.Nil {
		return nil, apierror.Validation("establishment_id", "establishment is required")
	}
	if req.ClientID == uuid.Nil {
		return nil, apierror.Validation("client_id", "client is required")
	}
	o := &model.Order{
		EstablishmentID: req.EstablishmentID,
		ClientID:        req.ClientID,
		VehicleID:       req.VehicleID,
		Description:     strings.TrimSpace(req.Description),
		Status:          model.OrderPending,
		OpenedBy:        openedBy,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return s.orders.FindByID(ctx, o.ID)
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// Delete removes the order with its items and part requests. Finalized
// orders and orders holding an active payment are kept.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, id)
		if err != nil {
			return err
		}
		if order.Status == model.OrderFinalized {
			return apierror.ErrOrderClosed.WithMessage("finalized orders cannot be deleted")
		}
		if _, err := s.paymentRepo.FindActiveByOrderTx(tx, id); err == nil {
			return apierror.ErrPaymentAlreadyExists.WithMessage("order has an active payment")
		} else if !apierror.IsNotFound(err) {
			return err
		}
		return s.orders.DeleteTx(tx, id)
	})
}

// ── Adjustments ──────────────────────────────────────────────────────────────

func (s *orderService) UpdateAdjustments(ctx context.Context, orderID uuid.UUID, req dto.AdjustmentsRequest) (model.Totals, error) {
	if req.Discount != nil && req.Discount.IsNegative() {
		return model.Totals{}, apierror.Validation("discount", "discount cannot be negative")
	}
	if req.Surcharge != nil && req.Surcharge.IsNegative() {
		return model.Totals{}, apierror.Validation("surcharge", "surcharge cannot be negative")
	}
	var totals model.Totals
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.LockByIDTx(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apierror.ErrOrderClosed
		}
		totals, err = recomputeTotals(tx, s.orders, orderID, adjustments{discount: req.Discount, surcharge: req.Surcharge})
		return err
	})
	return totals, err
}
