package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyOrder          = errors.New("no cart items provided")
	ErrCartItemsUnusable   = errors.New("cart items are already deleted or processed")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrOrderAlreadyClosed  = errors.New("order is already completed")
	ErrOrderNotOwnedByUser = errors.New("order does not belong to caller")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) AddCartItem(ctx context.Context, userID, productID int64, qty float64) (int64, error) {
	if qty < 1 {
		return 0, ErrInvalidQuantity
	}
	return s.repo.AddCartItem(ctx, userID, productID, qty)
}

func (s *Service) UpdateCartItem(ctx context.Context, userID, itemID int64, qty float64) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return s.repo.UpdateCartQuantity(ctx, userID, itemID, qty)
}

func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, itemID)
}

// Cart returns live lines and the running total, computed at read time.
func (s *Service) Cart(ctx context.Context, userID int64) ([]CartLine, float64, error) {
	lines, err := s.repo.ListCart(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	var total float64
	for _, l := range lines {
		total += l.LineTotal
	}
	return lines, total, nil
}

// CreateOrder turns the named cart items into a pending order. Items already
// soft-deleted or checked out reject the whole request.
func (s *Service) CreateOrder(ctx context.Context, userID int64, itemIDs []int64, in OrderInput) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, ErrEmptyOrder
	}

	invalid, err := s.repo.GetInvalidCartItems(ctx, userID, itemIDs)
	if err != nil {
		return 0, fmt.Errorf("validate cart items: %w", err)
	}
	if len(invalid) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrCartItemsUnusable, invalid)
	}

	items, err := s.repo.GetLiveCartItems(ctx, userID, itemIDs)
	if err != nil {
		return 0, fmt.Errorf("load cart items: %w", err)
	}
	if len(items) == 0 {
		return 0, ErrCartItemNotFound
	}

	var total float64
	for _, item := range items {
		total += item.LineTotal
	}

	orderID, err := s.repo.InsertOrder(ctx, userID, total, in, items)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}

	s.log.Info().
		Int64("order", orderID).
		Int64("user", userID).
		Int("items", len(items)).
		Float64("total", total).
		Msg("order created")
	return orderID, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *Service) ListOrders(ctx context.Context, status string) ([]OrderDetail, error) {
	if status == "" {
		return s.repo.ListOrders(ctx, nil)
	}
	st := OrderStatus(status)
	if !ValidStatus(st) {
		return nil, ErrInvalidOrderStatus
	}
	return s.repo.ListOrders(ctx, &st)
}

func (s *Service) MyOrders(ctx context.Context, userID int64) ([]Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// UpdateOrderStatus moves an order through its lifecycle. A transition to
// completed validates and deducts stock inside one transaction: every lot is
// row-locked before the availability check, so a shortfall on any line
// leaves all stock untouched, and concurrent completions sharing a product
// serialize instead of double-deducting.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus OrderStatus) error {
	if !ValidStatus(newStatus) {
		return ErrInvalidOrderStatus
	}

	err := s.repo.InStockTx(ctx, func(tx StockTx) error {
		current, err := tx.GetOrderStatus(ctx, orderID)
		if err != nil {
			return err
		}
		if current == StatusCompleted {
			return ErrOrderAlreadyClosed
		}

		if newStatus == StatusCompleted {
			items, err := tx.ListOrderItems(ctx, orderID)
			if err != nil {
				return err
			}

			lots := make([]*StockLot, len(items))
			for i, item := range items {
				lot, err := tx.LockStockLot(ctx, item.ProductID)
				if err != nil {
					if errors.Is(err, ErrStockLotNotFound) {
						return &InsufficientStockError{ProductID: item.ProductID, Required: item.Quantity}
					}
					return err
				}
				if lot.Number < item.Quantity {
					return &InsufficientStockError{
						ProductID: item.ProductID,
						Required:  item.Quantity,
						Available: lot.Number,
					}
				}
				lots[i] = lot
			}

			for i, item := range items {
				if err := tx.DeductStock(ctx, lots[i].ID, item.Quantity); err != nil {
					return fmt.Errorf("deduct stock for product %d: %w", item.ProductID, err)
				}
			}
		}

		return tx.SetStatus(ctx, orderID, newStatus)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("order", orderID).
		Str("status", string(newStatus)).
		Msg("order status updated")
	return nil
}
