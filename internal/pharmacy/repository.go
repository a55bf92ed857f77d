package pharmacy

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrStockLotNotFound  = errors.New("no stock lot for product")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the product that blocked an order completion.
type InsufficientStockError struct {
	ProductID int64
	Required  float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: required %g, available %g",
		e.ProductID, e.Required, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type OrderInput struct {
	ShippingAddress string
	Notes           *string
	PaymentMethod   string
}

// StockTx is the slice of a database transaction the completion logic needs.
// LockStockLot takes a row lock so concurrent completions of orders sharing
// a product serialize on it.
type StockTx interface {
	GetOrderStatus(ctx context.Context, orderID int64) (OrderStatus, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	LockStockLot(ctx context.Context, productID int64) (*StockLot, error)
	DeductStock(ctx context.Context, lotID int64, qty float64) error
	SetStatus(ctx context.Context, orderID int64, status OrderStatus) error
}

type Repository interface {
	// Cart
	AddCartItem(ctx context.Context, userID, productID int64, qty float64) (int64, error)
	UpdateCartQuantity(ctx context.Context, userID, itemID int64, qty float64) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error
	ListCart(ctx context.Context, userID int64) ([]CartLine, error)

	// Checkout
	GetInvalidCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]int64, error)
	GetLiveCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]CartLine, error)
	InsertOrder(ctx context.Context, userID int64, total float64, in OrderInput, items []CartLine) (int64, error)

	// Order views
	GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error)
	ListOrders(ctx context.Context, status *OrderStatus) ([]OrderDetail, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error)

	// Status transitions run inside one transaction via InStockTx so the
	// stock check and deduction commit together or not at all.
	InStockTx(ctx context.Context, fn func(tx StockTx) error) error
}
