package pharmacy

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStockTx struct {
	mock.Mock
}

func (m *mockStockTx) GetOrderStatus(ctx context.Context, orderID int64) (OrderStatus, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(OrderStatus), args.Error(1)
}

func (m *mockStockTx) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.([]OrderItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStockTx) LockStockLot(ctx context.Context, productID int64) (*StockLot, error) {
	args := m.Called(ctx, productID)
	if v := args.Get(0); v != nil {
		return v.(*StockLot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStockTx) DeductStock(ctx context.Context, lotID int64, qty float64) error {
	args := m.Called(ctx, lotID, qty)
	return args.Error(0)
}

func (m *mockStockTx) SetStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type mockPharmacyRepo struct {
	mock.Mock
	tx *mockStockTx
}

func (m *mockPharmacyRepo) AddCartItem(ctx context.Context, userID, productID int64, qty float64) (int64, error) {
	args := m.Called(ctx, userID, productID, qty)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPharmacyRepo) UpdateCartQuantity(ctx context.Context, userID, itemID int64, qty float64) error {
	args := m.Called(ctx, userID, itemID, qty)
	return args.Error(0)
}

func (m *mockPharmacyRepo) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *mockPharmacyRepo) ListCart(ctx context.Context, userID int64) ([]CartLine, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]CartLine), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) GetInvalidCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]int64, error) {
	args := m.Called(ctx, userID, itemIDs)
	if v := args.Get(0); v != nil {
		return v.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) GetLiveCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]CartLine, error) {
	args := m.Called(ctx, userID, itemIDs)
	if v := args.Get(0); v != nil {
		return v.([]CartLine), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) InsertOrder(ctx context.Context, userID int64, total float64, in OrderInput, items []CartLine) (int64, error) {
	args := m.Called(ctx, userID, total, in, items)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPharmacyRepo) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.(*OrderDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) ListOrders(ctx context.Context, status *OrderStatus) ([]OrderDetail, error) {
	args := m.Called(ctx, status)
	if v := args.Get(0); v != nil {
		return v.([]OrderDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPharmacyRepo) InStockTx(ctx context.Context, fn func(tx StockTx) error) error {
	m.Called(ctx)
	return fn(m.tx)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zerolog.Nop())
}

func TestAddCartItemRejectsZeroQuantity(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	_, err := svc.AddCartItem(context.Background(), 1, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	repo.AssertNotCalled(t, "AddCartItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartTotals(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	repo.On("ListCart", mock.Anything, int64(1)).Return([]CartLine{
		{ID: 1, Quantity: 2, UnitPrice: 50, LineTotal: 100},
		{ID: 2, Quantity: 1, UnitPrice: 25.5, LineTotal: 25.5},
	}, nil)

	lines, total, err := svc.Cart(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.InDelta(t, 125.5, total, 1e-9)
}

func TestCreateOrderRejectsUnusableItems(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	repo.On("GetInvalidCartItems", mock.Anything, int64(1), []int64{3, 4}).Return([]int64{4}, nil)

	_, err := svc.CreateOrder(context.Background(), 1, []int64{3, 4}, OrderInput{})
	assert.ErrorIs(t, err, ErrCartItemsUnusable)
	repo.AssertNotCalled(t, "InsertOrder",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderEmpty(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	_, err := svc.CreateOrder(context.Background(), 1, nil, OrderInput{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderTotalsLines(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	items := []CartLine{
		{ID: 3, ProductID: 10, Quantity: 2, UnitPrice: 40, LineTotal: 80},
		{ID: 4, ProductID: 11, Quantity: 1, UnitPrice: 60, LineTotal: 60},
	}

	repo.On("GetInvalidCartItems", mock.Anything, int64(1), []int64{3, 4}).Return([]int64{}, nil)
	repo.On("GetLiveCartItems", mock.Anything, int64(1), []int64{3, 4}).Return(items, nil)
	repo.On("InsertOrder", mock.Anything, int64(1), float64(140), mock.Anything, items).Return(int64(77), nil)

	orderID, err := svc.CreateOrder(context.Background(), 1, []int64{3, 4}, OrderInput{ShippingAddress: "12 High St"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), orderID)
	repo.AssertExpectations(t)
}

func TestUpdateOrderStatusInvalid(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	err := svc.UpdateOrderStatus(context.Background(), 77, "shipped")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestUpdateOrderStatusAlreadyCompleted(t *testing.T) {
	tx := new(mockStockTx)
	repo := &mockPharmacyRepo{tx: tx}
	svc := newTestService(repo)

	repo.On("InStockTx", mock.Anything).Return(nil)
	tx.On("GetOrderStatus", mock.Anything, int64(77)).Return(StatusCompleted, nil)

	err := svc.UpdateOrderStatus(context.Background(), 77, StatusProcessing)
	assert.ErrorIs(t, err, ErrOrderAlreadyClosed)
}

func TestCompleteOrderDeductsStock(t *testing.T) {
	tx := new(mockStockTx)
	repo := &mockPharmacyRepo{tx: tx}
	svc := newTestService(repo)

	items := []OrderItem{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 1},
	}

	repo.On("InStockTx", mock.Anything).Return(nil)
	tx.On("GetOrderStatus", mock.Anything, int64(77)).Return(StatusReadyForDelivery, nil)
	tx.On("ListOrderItems", mock.Anything, int64(77)).Return(items, nil)
	tx.On("LockStockLot", mock.Anything, int64(10)).Return(&StockLot{ID: 1, Product: 10, Number: 5}, nil)
	tx.On("LockStockLot", mock.Anything, int64(11)).Return(&StockLot{ID: 2, Product: 11, Number: 1}, nil)
	tx.On("DeductStock", mock.Anything, int64(1), float64(2)).Return(nil)
	tx.On("DeductStock", mock.Anything, int64(2), float64(1)).Return(nil)
	tx.On("SetStatus", mock.Anything, int64(77), StatusCompleted).Return(nil)

	err := svc.UpdateOrderStatus(context.Background(), 77, StatusCompleted)
	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestCompleteOrderShortfallAbortsBeforeAnyDeduction(t *testing.T) {
	tx := new(mockStockTx)
	repo := &mockPharmacyRepo{tx: tx}
	svc := newTestService(repo)

	items := []OrderItem{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 3},
	}

	repo.On("InStockTx", mock.Anything).Return(nil)
	tx.On("GetOrderStatus", mock.Anything, int64(77)).Return(StatusProcessing, nil)
	tx.On("ListOrderItems", mock.Anything, int64(77)).Return(items, nil)
	tx.On("LockStockLot", mock.Anything, int64(10)).Return(&StockLot{ID: 1, Product: 10, Number: 5}, nil)
	// Second line is short by two units.
	tx.On("LockStockLot", mock.Anything, int64(11)).Return(&StockLot{ID: 2, Product: 11, Number: 1}, nil)

	err := svc.UpdateOrderStatus(context.Background(), 77, StatusCompleted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(11), stockErr.ProductID)
	assert.Equal(t, float64(3), stockErr.Required)
	assert.Equal(t, float64(1), stockErr.Available)

	tx.AssertNotCalled(t, "DeductStock", mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteOrderMissingLot(t *testing.T) {
	tx := new(mockStockTx)
	repo := &mockPharmacyRepo{tx: tx}
	svc := newTestService(repo)

	items := []OrderItem{{ProductID: 10, Quantity: 2}}

	repo.On("InStockTx", mock.Anything).Return(nil)
	tx.On("GetOrderStatus", mock.Anything, int64(77)).Return(StatusProcessing, nil)
	tx.On("ListOrderItems", mock.Anything, int64(77)).Return(items, nil)
	tx.On("LockStockLot", mock.Anything, int64(10)).Return(nil, ErrStockLotNotFound)

	err := svc.UpdateOrderStatus(context.Background(), 77, StatusCompleted)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	repo := new(mockPharmacyRepo)
	svc := newTestService(repo)

	_, err := svc.ListOrders(context.Background(), "dispatched")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}
