package pharmacy

import "time"

type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusProcessing       OrderStatus = "processing"
	StatusReadyForDelivery OrderStatus = "ready_for_delivery"
	StatusCompleted        OrderStatus = "completed"
	StatusCancelled        OrderStatus = "cancelled"
)

// ValidStatus reports whether s is one of the order lifecycle states.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReadyForDelivery, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CartLine is a live cart row joined to its product and list price. Cart
// rows are soft-flagged (is_delet, order_pressed) rather than deleted.
type CartLine struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    float64
	UnitPrice   float64
	LineTotal   float64
}

type Order struct {
	ID              int64
	UserID          int64
	OrderDate       time.Time
	Status          OrderStatus
	TotalAmount     float64
	PaymentMethod   *string
	PaymentStatus   *string
	ShippingAddress *string
	Notes           *string
}

type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    float64
	UnitPrice   float64
	TotalPrice  float64
}

type OrderDetail struct {
	Order Order
	Items []OrderItem
}

// StockLot is the single inventory quantity row per product.
type StockLot struct {
	ID      int64
	Product int64
	Number  float64
}
