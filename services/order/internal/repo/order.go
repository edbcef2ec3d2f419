package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// InTx runs fn against a repo bound to a single transaction.
func (r *GormRepo) InTx(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

// GetProducts returns the live products among ids, keyed by id.
func (r *GormRepo) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductRef, error) {
	var prods []models.ProductRef
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&prods).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.ProductRef, len(prods))
	for _, p := range prods {
		out[p.ID] = p
	}
	return out, nil
}

// DecrementStock takes qty units only if that many are in stock; it reports whether it did.
func (r *GormRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.ProductRef{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.DB.WithContext(ctx).Unscoped().Model(&models.ProductRef{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *GormRepo) CreateAttempt(ctx context.Context, a *models.PaymentAttempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *GormRepo) SetAttemptGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	return r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Update("gateway_order_id", gatewayOrderID).Error
}

func (r *GormRepo) SetAttemptStatus(ctx context.Context, id uuid.UUID, status models.AttemptStatus, reason string) error {
	return r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "failure_reason": reason}).Error
}

// FailAttempt marks an attempt failed unless it already produced an order.
func (r *GormRepo) FailAttempt(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status <> ?", id, models.AttemptConfirmed).
		Updates(map[string]any{"status": models.AttemptFailed, "failure_reason": reason})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// TransitionAttempt moves an attempt out of status from; it reports false when another
// writer got there first.
func (r *GormRepo) TransitionAttempt(ctx context.Context, id uuid.UUID, from, to models.AttemptStatus, reason string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "failure_reason": reason})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) GetAttempt(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) GetAttemptByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.DB.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// AttemptCursor marks the last attempt seen when paging stale attempts.
type AttemptCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// ListStaleAttempts returns initiated attempts created before cutoff, oldest first,
// starting after the cursor when one is given.
func (r *GormRepo) ListStaleAttempts(ctx context.Context, cutoff time.Time, after *AttemptCursor, limit int) ([]models.PaymentAttempt, error) {
	q := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.AttemptInitiated, cutoff)
	if after != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var out []models.PaymentAttempt
	err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func withRefs(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("title ASC") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("User")
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := withRefs(r.DB.WithContext(ctx)).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrderByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var o models.Order
	if err := withRefs(r.DB.WithContext(ctx)).Where("gateway_order_id = ?", gatewayOrderID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrder loads the order row with its items for update.
func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Where("order_id = ?", id).Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, shipmentID string) error {
	updates := map[string]any{"status": status}
	if shipmentID != "" {
		updates["shipment_id"] = shipmentID
	}
	return r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

type OrderFilter struct {
	UserID uuid.UUID
	Status models.OrderStatus
}

// ListOrders pages through orders newest first with items, products and user preloaded.
func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	if err := withRefs(q).Order("created_at DESC").Order("id ASC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}
