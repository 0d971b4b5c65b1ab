package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `
	id, user_id, shipping_address_id, order_date, total_price, status,
	is_paid, paid_at, is_delivered, delivered_at, tracking_number, notes,
	payment_method, tx_ref, payment_status, payment_date, payment_amount,
	payment_reference, payment_channel, version, created_at, updated_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	return r.store.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		`,
			order.ID, order.UserID, order.ShippingAddressID, order.OrderDate, order.TotalPrice, string(order.Status),
			order.IsPaid, nullTime(order.PaidAt), order.IsDelivered, nullTime(order.DeliveredAt), order.TrackingNumber, order.Notes,
			order.PaymentMethod, order.PaymentResult.TxRef, order.PaymentResult.Status, nullTime(order.PaymentResult.PaymentDate), order.PaymentResult.Amount,
			order.PaymentResult.Reference, order.PaymentResult.Method, order.Version, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderVersionConflict
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, product_id, quantity, name, price)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, order.ID, i, item.ProductID, item.Quantity, item.Name, item.Price); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.getBy(ctx, "id", id)
}

func (r *orderRepository) GetByTxRef(ctx context.Context, txRef string) (domain.Order, error) {
	return r.getBy(ctx, "tx_ref", txRef)
}

func (r *orderRepository) getBy(ctx context.Context, column, value string) (domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	row := r.store.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadOrderItems(ctx, r.store.db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, ``)
}

func (r *orderRepository) list(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		`+where+`
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	_ = rows.Close()

	for i := range orders {
		items, err := loadOrderItems(ctx, r.store.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// Save обновляет изменяемые поля заказа. Позиции и tx_ref после создания не меняются.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	return r.store.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1,
			    is_paid = $2,
			    paid_at = $3,
			    is_delivered = $4,
			    delivered_at = $5,
			    tracking_number = $6,
			    notes = $7,
			    payment_status = $8,
			    payment_date = $9,
			    payment_amount = $10,
			    payment_reference = $11,
			    payment_channel = $12,
			    version = version + 1,
			    updated_at = $13
			WHERE id = $14
			  AND version = $15
		`,
			string(order.Status),
			order.IsPaid,
			nullTime(order.PaidAt),
			order.IsDelivered,
			nullTime(order.DeliveredAt),
			order.TrackingNumber,
			order.Notes,
			order.PaymentResult.Status,
			nullTime(order.PaymentResult.PaymentDate),
			order.PaymentResult.Amount,
			order.PaymentResult.Reference,
			order.PaymentResult.Method,
			order.UpdatedAt,
			order.ID,
			order.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			return nil
		}

		exists, err := orderExists(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                          domain.Order
		status                         string
		paidAt, deliveredAt, paymentAt sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.UserID, &order.ShippingAddressID, &order.OrderDate, &order.TotalPrice, &status,
		&order.IsPaid, &paidAt, &order.IsDelivered, &deliveredAt, &order.TrackingNumber, &order.Notes,
		&order.PaymentMethod, &order.PaymentResult.TxRef, &order.PaymentResult.Status, &paymentAt, &order.PaymentResult.Amount,
		&order.PaymentResult.Reference, &order.PaymentResult.Method, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.PaidAt = timePtr(paidAt)
	order.DeliveredAt = timePtr(deliveredAt)
	order.PaymentResult.PaymentDate = timePtr(paymentAt)
	return order, nil
}

func loadOrderItems(ctx context.Context, q queryer, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity, name, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func orderExists(ctx context.Context, q queryer, orderID string) (bool, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
