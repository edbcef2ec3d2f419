package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/cart"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/transport"
)

var (
	ErrValidation        = errors.New("validation")              // 400
	ErrUnauthorized      = errors.New("unauthorized")            // 401
	ErrForbidden         = errors.New("forbidden")               // 403
	ErrNotFound          = errors.New("not found")               // 404
	ErrSignatureMismatch = errors.New("signature mismatch")      // 400
	ErrAmountMismatch    = errors.New("amount mismatch")         // 400
	ErrInsufficientStock = errors.New("insufficient stock")      // 409
	ErrInvalidTransition = errors.New("invalid transition")      // 409
	ErrUpstream          = errors.New("payment gateway failure") // 502
)

// Gateway is the subset of the payment gateway client the service relies on.
type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
	FetchOrder(ctx context.Context, id string) (*gateway.Order, error)
}

type Options struct {
	KeySecret        string
	Currency         string
	PayableTolerance decimal.Decimal
	TaxRate          decimal.Decimal
}

type OrderService struct {
	Repo    *repo.GormRepo
	Gateway Gateway
	Events  events.Publisher
	Opts    Options
	Now     func() time.Time
}

// Actor is the authenticated caller of a read or write.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// buildCart merges the submitted lines; prices are filled in later from the catalog.
func buildCart(lines []transport.ProductLine) (*cart.Cart, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: products must not be empty", ErrValidation)
	}
	c := &cart.Cart{}
	for i, l := range lines {
		id, err := uuid.Parse(strings.TrimSpace(l.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: products[%d].id is not a uuid", ErrValidation, i)
		}
		if err := c.Add(cart.Line{ProductID: id, Quantity: l.Quantity}); err != nil {
			return nil, fmt.Errorf("%w: products[%d]: %v", ErrValidation, i, err)
		}
	}
	return c, nil
}

// priceCart replaces every line's snapshot with live catalog data.
func priceCart(ctx context.Context, r *repo.GormRepo, c *cart.Cart) (map[uuid.UUID]models.ProductRef, error) {
	prods, err := r.GetProducts(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	for _, l := range c.Lines() {
		p, ok := prods[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, l.ProductID)
		}
		c.SetPrice(p.ID, p.Title, p.Slug, p.FirstImage(), p.SellingPrice)
	}
	return prods, nil
}

func (s *OrderService) Quote(ctx context.Context, req transport.QuoteRequest) (*transport.QuoteResponse, error) {
	c, err := buildCart(req.Products)
	if err != nil {
		return nil, err
	}
	prods, err := priceCart(ctx, s.Repo, c)
	if err != nil {
		return nil, err
	}

	resp := &transport.QuoteResponse{
		Lines:  make([]transport.QuoteLine, 0, c.Len()),
		Totals: c.Totals(s.Opts.TaxRate),
	}
	for _, l := range c.Lines() {
		stock := prods[l.ProductID].Stock
		resp.Lines = append(resp.Lines, transport.QuoteLine{
			Line:      l,
			LineTotal: l.Total(),
			Available: stock,
			InStock:   l.Quantity <= stock,
		})
	}
	return resp, nil
}

func (s *OrderService) ListAll(ctx context.Context, status string, offset, limit int) (int64, []models.Order, error) {
	f := repo.OrderFilter{}
	if status != "" {
		st, ok := models.ParseOrderStatus(status)
		if !ok {
			return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		f.Status = st
	}
	return s.Repo.ListOrders(ctx, f, offset, limit)
}

func (s *OrderService) ListForUser(ctx context.Context, actor Actor, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	if !actor.Admin && actor.UserID != userID {
		return 0, nil, fmt.Errorf("%w: orders of another user", ErrForbidden)
	}
	return s.Repo.ListOrders(ctx, repo.OrderFilter{UserID: userID}, offset, limit)
}

// GetOrder hides orders of other users behind ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !actor.Admin && o.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateOrderRequest) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(strings.TrimSpace(req.OrderStatus))
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.OrderStatus)
	}

	var prev models.OrderStatus
	var userID uuid.UUID
	var restocked []models.OrderItem
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
		}
		prev, userID = o.Status, o.UserID

		if next == models.StatusCancelled {
			for _, it := range o.Items {
				if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("restock %s: %w", it.ProductID, err)
				}
			}
			restocked = o.Items
		}

		shipment := ""
		if next == models.StatusShipped {
			shipment = strings.TrimSpace(req.ShipmentID)
		}
		return tx.UpdateOrderStatus(ctx, id, next, shipment)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicOrder, id.String(), events.Event{
		"type":     "order_status_changed",
		"order_id": id,
		"user_id":  userID,
		"from":     prev,
		"to":       next,
	})
	for _, it := range restocked {
		s.emitStockChanged(ctx, it, it.Quantity, id)
	}

	return s.Repo.GetOrder(ctx, id)
}

// emitStockChanged tells the catalog that stock of the item's product moved by delta.
func (s *OrderService) emitStockChanged(ctx context.Context, it models.OrderItem, delta int, orderID uuid.UUID) {
	events.Emit(ctx, s.Events, events.TopicProduct, it.ProductID.String(), events.Event{
		"type":       events.TypeProductStockChanged,
		"product_id": it.ProductID,
		"slug":       it.Slug,
		"delta":      delta,
		"order_id":   orderID,
	})
}
