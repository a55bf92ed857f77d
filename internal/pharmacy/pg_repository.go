package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// AddCartItem upserts on the live row for the product: adding a product
// already in the cart bumps its quantity. The schema has no unique index on
// live cart rows, so concurrent adds of the same product are serialized with
// a transaction-scoped advisory lock instead of ON CONFLICT.
func (r *PgRepository) AddCartItem(ctx context.Context, userID, productID int64, qty float64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin cart add: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, userID, productID); err != nil {
		return 0, fmt.Errorf("lock cart row: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM cart_items
		WHERE patient_id = $1
		  AND product_id = $2
		  AND COALESCE(is_delet, false) = false
		  AND COALESCE(order_pressed, false) = false
	`, userID, productID).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `
			INSERT INTO cart_items
				(patient_id, product_id, quantity, created_at, updated_at, is_delet, order_pressed)
			VALUES ($1, $2, $3, now(), now(), false, false)
			RETURNING id
		`, userID, productID, qty).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert cart item: %w", err)
		}
	case err != nil:
		return 0, err
	default:
		_, err = tx.Exec(ctx, `
			UPDATE cart_items
			SET quantity = quantity + $2, updated_at = now()
			WHERE id = $1
		`, id, qty)
		if err != nil {
			return 0, fmt.Errorf("bump cart quantity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit cart add: %w", err)
	}
	return id, nil
}

func (r *PgRepository) UpdateCartQuantity(ctx context.Context, userID, itemID int64, qty float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $3, updated_at = now()
		WHERE id = $1
		  AND patient_id = $2
		  AND COALESCE(is_delet, false) = false
		  AND COALESCE(order_pressed, false) = false
	`, itemID, userID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *PgRepository) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items
		SET is_delet = true, updated_at = now()
		WHERE id = $1
		  AND patient_id = $2
		  AND COALESCE(is_delet, false) = false
	`, itemID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

const cartLineSelect = `
	SELECT ci.id, pp.id, pt.name, ci.quantity, plp.list_price,
	       ci.quantity * plp.list_price
	FROM cart_items ci
	JOIN product_product pp ON ci.product_id = pp.id
	JOIN product_template pt ON pp.template = pt.id
	JOIN product_list_price plp ON plp.template = pt.id
	WHERE ci.patient_id = $1
	  AND COALESCE(ci.is_delet, false) = false
	  AND COALESCE(ci.order_pressed, false) = false`

func scanCartLines(rows pgx.Rows) ([]CartLine, error) {
	defer rows.Close()
	var out []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListCart(ctx context.Context, userID int64) ([]CartLine, error) {
	rows, err := r.pool.Query(ctx, cartLineSelect+" ORDER BY ci.created_at", userID)
	if err != nil {
		return nil, err
	}
	return scanCartLines(rows)
}

func (r *PgRepository) GetInvalidCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM cart_items
		WHERE id = ANY($1)
		  AND patient_id = $2
		  AND (COALESCE(is_delet, false) OR COALESCE(order_pressed, false))
	`, itemIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PgRepository) GetLiveCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]CartLine, error) {
	rows, err := r.pool.Query(ctx, cartLineSelect+" AND ci.id = ANY($2)", userID, itemIDs)
	if err != nil {
		return nil, err
	}
	return scanCartLines(rows)
}

// InsertOrder writes the order header, one item per cart line, and flags the
// cart rows as processed, all in one transaction.
func (r *PgRepository) InsertOrder(ctx context.Context, userID int64, total float64, in OrderInput, items []CartLine) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin order insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO ecom_orders
			(user_id, order_date, status, total_amount, payment_method, payment_status, shipping_address, notes)
		VALUES ($1, now(), 'pending', $2, $3, 'pending', $4, $5)
		RETURNING id
	`, userID, total, in.PaymentMethod, in.ShippingAddress, in.Notes).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	cartIDs := make([]int64, 0, len(items))
	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO ecom_order_items
				(order_id, product_id, quantity, price_per_unit, total_price, created_at, cart_id)
			VALUES ($1, $2, $3, $4, $5, now(), $6)
		`, orderID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal, item.ID)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
		cartIDs = append(cartIDs, item.ID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE cart_items
		SET order_pressed = true, updated_at = now()
		WHERE id = ANY($1) AND patient_id = $2
	`, cartIDs, userID)
	if err != nil {
		return 0, fmt.Errorf("mark cart items processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit order insert: %w", err)
	}
	return orderID, nil
}

const orderSelect = `
	SELECT id, user_id, order_date, status, COALESCE(total_amount, 0),
	       payment_method, payment_status, shipping_address, notes
	FROM ecom_orders`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.ShippingAddress, &o.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) orderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT eoi.id, eoi.order_id, eoi.product_id, pt.name,
		       eoi.quantity, eoi.price_per_unit, eoi.total_price
		FROM ecom_order_items eoi
		JOIN product_product pp ON eoi.product_id = pp.id
		JOIN product_template pt ON pp.template = pt.id
		WHERE eoi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PgRepository) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+" WHERE id = $1", orderID))
	if err != nil {
		return nil, err
	}
	items, err := r.orderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

func (r *PgRepository) ListOrders(ctx context.Context, status *OrderStatus) ([]OrderDetail, error) {
	query := orderSelect
	args := []any{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY order_date DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		items, err := r.orderItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderDetail{Order: o, Items: items})
	}
	return out, nil
}

func (r *PgRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.pool.Query(ctx, orderSelect+" WHERE user_id = $1 ORDER BY order_date DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PgRepository) InStockTx(ctx context.Context, fn func(tx StockTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgStockTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}
	return nil
}

type pgStockTx struct {
	tx pgx.Tx
}

func (s *pgStockTx) GetOrderStatus(ctx context.Context, orderID int64) (OrderStatus, error) {
	var status OrderStatus
	err := s.tx.QueryRow(ctx, `
		SELECT status FROM ecom_orders WHERE id = $1
	`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	return status, nil
}

func (s *pgStockTx) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price_per_unit, total_price
		FROM ecom_order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LockStockLot blocks concurrent completions touching the same product
// until this transaction finishes.
func (s *pgStockTx) LockStockLot(ctx context.Context, productID int64) (*StockLot, error) {
	var lot StockLot
	err := s.tx.QueryRow(ctx, `
		SELECT id, product, COALESCE(number, 0)
		FROM stock_lot
		WHERE product = $1
		FOR UPDATE
	`, productID).Scan(&lot.ID, &lot.Product, &lot.Number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStockLotNotFound
		}
		return nil, err
	}
	return &lot, nil
}

func (s *pgStockTx) DeductStock(ctx context.Context, lotID int64, qty float64) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE stock_lot
		SET number = number - $2, write_date = now()
		WHERE id = $1
	`, lotID, qty)
	return err
}

func (s *pgStockTx) SetStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE ecom_orders SET status = $2 WHERE id = $1
	`, orderID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
