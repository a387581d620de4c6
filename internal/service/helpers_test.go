package service_test

import (
	"context"
	"testing"

	"oficina/internal/dto"
	"oficina/internal/event"
	"oficina/internal/model"
	"oficina/internal/repository"
	"oficina/internal/service"
	"oficina/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	catalog   repository.CatalogRepository
	regRepo   repository.CashRegisterRepository
	payRepo   repository.PaymentRepository
	events    *event.Recorder

	orders    service.OrderService
	payments  service.PaymentService
	registers service.CashRegisterService

	establishment uuid.UUID
	client        uuid.UUID
	user          uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := testutil.NewStore(t, db)

	f := &fixture{
		db:            db,
		orderRepo:     repository.NewOrderRepository(db),
		catalog:       repository.NewCatalogRepository(db, nil),
		regRepo:       repository.NewCashRegisterRepository(db),
		payRepo:       repository.NewPaymentRepository(db),
		events:        &event.Recorder{},
		establishment: uuid.New(),
		client:        uuid.New(),
		user:          uuid.New(),
	}
	f.payments = service.NewPaymentService(store, f.payRepo, f.orderRepo, f.regRepo, f.events)
	f.orders = service.NewOrderService(store, f.orderRepo, f.catalog, f.regRepo, f.payRepo, f.payments, f.events)
	f.registers = service.NewCashRegisterService(store, f.regRepo)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func (f *fixture) catalogItem(t *testing.T, kind model.ItemKind, name, price string) *model.CatalogItem {
	t.Helper()
	it := &model.CatalogItem{Name: name, Kind: kind, Price: dec(price), Active: true}
	require.NoError(t, f.catalog.Save(context.Background(), it))
	return it
}

func (f *fixture) newOrder(t *testing.T) *model.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), f.user, dto.CreateOrderRequest{
		EstablishmentID: f.establishment,
		ClientID:        f.client,
		Description:     "revisão geral",
	})
	require.NoError(t, err)
	return o
}

// orderWithTotal creates an order holding one ad-hoc service line of price.
func (f *fixture) orderWithTotal(t *testing.T, price string) *model.Order {
	t.Helper()
	o := f.newOrder(t)
	_, err := f.orders.AddAdHocItem(context.Background(), o.ID, dto.AddAdHocItemRequest{
		Description: "mão de obra",
		Kind:        string(model.ItemService),
		Quantity:    1,
		UnitPrice:   dec(price),
	})
	require.NoError(t, err)
	return f.reload(t, o.ID)
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *model.Order {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o
}

// walk transitions the order through each status in turn.
func (f *fixture) walk(t *testing.T, id uuid.UUID, statuses ...model.OrderStatus) *service.TransitionResult {
	t.Helper()
	var res *service.TransitionResult
	for _, st := range statuses {
		var err error
		res, err = f.orders.Transition(context.Background(), id, dto.TransitionRequest{Status: string(st)})
		require.NoError(t, err, "transition to %s", st)
	}
	return res
}

func (f *fixture) countPayments(t *testing.T, orderID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Payment{}).Where("order_id = ?", orderID).Count(&n).Error)
	return n
}

func (f *fixture) activeRows(t *testing.T, orderID, catalogID uuid.UUID) []model.OrderItem {
	t.Helper()
	var rows []model.OrderItem
	require.NoError(t, f.db.
		Where("order_id = ? AND catalog_item_id = ? AND status = ?", orderID, catalogID, model.ItemActive).
		Order("id ASC").
		Find(&rows).Error)
	return rows
}

// requireTotalsConsistent checks total = subtotal − discount + surcharge and
// subtotal = Σ active item totals.
func (f *fixture) requireTotalsConsistent(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	o := f.reload(t, orderID)
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Total)
	}
	require.True(t, o.Subtotal.Equal(sum), "subtotal %s != Σ items %s", o.Subtotal, sum)
	want := o.Subtotal.Sub(o.Discount).Add(o.Surcharge)
	require.True(t, o.Total.Equal(want), "total %s != %s", o.Total, want)
}
