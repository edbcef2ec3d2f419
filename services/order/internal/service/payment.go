package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/cart"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/signature"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/transport"
)

var pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)

// CapturePayment prices the cart from the catalog, records a payment attempt and
// asks the gateway for an order of that amount.
func (s *OrderService) CapturePayment(ctx context.Context, userID uuid.UUID, req transport.CapturePaymentRequest) (*gateway.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.capture_payment")

	c, err := buildCart(req.Products)
	if err != nil {
		return nil, err
	}
	prods, err := priceCart(ctx, s.Repo, c)
	if err != nil {
		return nil, err
	}

	lines := make([]models.AttemptLine, 0, c.Len())
	for _, line := range c.Lines() {
		if stock := prods[line.ProductID].Stock; line.Quantity > stock {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, line.Slug, stock)
		}
		lines = append(lines, models.AttemptLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	amount := cart.MinorUnits(c.Subtotal())
	if amount <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", ErrValidation)
	}

	attempt := &models.PaymentAttempt{
		UserID:   userID,
		Amount:   amount,
		Currency: s.Opts.Currency,
		Lines:    lines,
		Status:   models.AttemptInitiated,
	}
	if err := s.Repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create payment attempt: %w", err)
	}

	gwOrder, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:   amount,
		Currency: attempt.Currency,
		Receipt:  attempt.ID.String(),
		Notes:    map[string]string{"user_id": userID.String()},
	})
	if err != nil {
		if errors.Is(err, gateway.ErrRejected) {
			if _, mErr := s.Repo.FailAttempt(ctx, attempt.ID, err.Error()); mErr != nil {
				l.Error("attempt_update_error", "attempt_id", attempt.ID, "error", mErr)
			}
		} else {
			l.Warn("payment_pending", "attempt_id", attempt.ID, "reason", "gateway unreachable", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.Repo.SetAttemptGatewayOrder(ctx, attempt.ID, gwOrder.ID); err != nil {
		return nil, fmt.Errorf("record gateway order %s: %w", gwOrder.ID, err)
	}

	l.Info("payment_captured", "attempt_id", attempt.ID, "gateway_order_id", gwOrder.ID, "amount", amount)
	return gwOrder, nil
}

// VerifyPayment authenticates the gateway callback and writes the order.
// created is false when the order already existed for this gateway order.
func (s *OrderService) VerifyPayment(ctx context.Context, userID uuid.UUID, req transport.VerifyPaymentRequest) (order *models.Order, created bool, err error) {
	if userID == uuid.Nil {
		return nil, false, ErrUnauthorized
	}
	orderID := strings.TrimSpace(req.RazorpayOrderID)
	paymentID := strings.TrimSpace(req.RazorpayPaymentID)
	sig := strings.TrimSpace(req.RazorpaySignature)
	if orderID == "" || paymentID == "" || sig == "" {
		return nil, false, fmt.Errorf("%w: razorpay_order_id, razorpay_payment_id and razorpay_signature are required", ErrValidation)
	}

	if !signature.Verify(s.Opts.KeySecret, orderID, paymentID, sig) {
		return nil, false, ErrSignatureMismatch
	}

	return s.WriteOrder(ctx, WriteOrderInput{
		UserID:           userID,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		Address:          req.Address,
		Products:         req.Products,
		Payable:          req.Payable,
	})
}

type WriteOrderInput struct {
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Address          transport.Address
	Products         []transport.ProductLine
	Payable          decimal.Decimal
}

func validateAddress(a transport.Address) error {
	missing := make([]string, 0, 5)
	for name, v := range map[string]string{
		"name": a.Name, "address": a.Address, "city": a.City, "state": a.State, "pincode": a.Pincode,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: address fields required: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !pincodeRe.MatchString(strings.TrimSpace(a.Pincode)) {
		return fmt.Errorf("%w: pincode must be 6 digits", ErrValidation)
	}
	return nil
}

// sameLines reports whether the submitted cart describes exactly the paid lines.
func sameLines(c *cart.Cart, paid []models.AttemptLine) bool {
	if c.Len() != len(paid) {
		return false
	}
	want := make(map[uuid.UUID]int, len(paid))
	for _, p := range paid {
		want[p.ProductID] = p.Quantity
	}
	for _, l := range c.Lines() {
		if want[l.ProductID] != l.Quantity {
			return false
		}
	}
	return true
}

func (s *OrderService) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", s.now().Format("20060102"), suffix)
}

// WriteOrder turns a verified payment into an order. Stock decrement, order insert
// and attempt confirmation commit together or not at all.
func (s *OrderService) WriteOrder(ctx context.Context, in WriteOrderInput) (*models.Order, bool, error) {
	l := logging.FromContext(ctx).With("svc", "order.write_order", "gateway_order_id", in.GatewayOrderID)

	existing, err := s.Repo.GetOrderByGatewayOrder(ctx, in.GatewayOrderID)
	switch {
	case err == nil:
		if existing.UserID != in.UserID {
			return nil, false, fmt.Errorf("%w: payment %s", ErrNotFound, in.GatewayOrderID)
		}
		l.Info("order_already_written", "order_id", existing.ID)
		return existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if err := validateAddress(in.Address); err != nil {
		return nil, false, err
	}
	if !in.Payable.IsPositive() {
		return nil, false, fmt.Errorf("%w: payable must be positive", ErrValidation)
	}

	attempt, err := s.Repo.GetAttemptByGatewayOrder(ctx, in.GatewayOrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && attempt.UserID != in.UserID) {
		return nil, false, fmt.Errorf("%w: payment %s", ErrNotFound, in.GatewayOrderID)
	}
	if err != nil {
		return nil, false, err
	}

	if len(in.Products) > 0 {
		c, err := buildCart(in.Products)
		if err != nil {
			return nil, false, err
		}
		if !sameLines(c, attempt.Lines) {
			return nil, false, fmt.Errorf("%w: products do not match the payment", ErrValidation)
		}
	}

	order := &models.Order{
		OrderNumber:      s.newOrderNumber(),
		UserID:           in.UserID,
		ShippingName:     strings.TrimSpace(in.Address.Name),
		ShippingAddress:  strings.TrimSpace(in.Address.Address),
		ShippingCity:     strings.TrimSpace(in.Address.City),
		ShippingState:    strings.TrimSpace(in.Address.State),
		ShippingPincode:  strings.TrimSpace(in.Address.Pincode),
		ShippingPhone:    strings.TrimSpace(in.Address.Phone),
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		Currency:         attempt.Currency,
		Status:           models.StatusPending,
	}

	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		ids := make([]uuid.UUID, len(attempt.Lines))
		for i, line := range attempt.Lines {
			ids[i] = line.ProductID
		}
		prods, err := tx.GetProducts(ctx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(attempt.Lines))
		for _, line := range attempt.Lines {
			p, ok := prods[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s", ErrNotFound, line.ProductID)
			}
			lineTotal := p.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, models.OrderItem{
				ProductID: p.ID,
				Title:     p.Title,
				Slug:      p.Slug,
				Image:     p.FirstImage(),
				UnitPrice: p.SellingPrice,
				Quantity:  line.Quantity,
				LineTotal: lineTotal,
			})
		}

		if charged := cart.MinorUnits(total); charged != attempt.Amount {
			return fmt.Errorf("%w: paid %d, current total %d", ErrAmountMismatch, attempt.Amount, charged)
		}
		if total.Sub(in.Payable).Abs().GreaterThan(s.Opts.PayableTolerance) {
			return fmt.Errorf("%w: payable %s, total %s", ErrAmountMismatch, in.Payable.StringFixed(2), total.StringFixed(2))
		}

		for _, it := range items {
			ok, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Slug)
			}
		}

		order.Total = total
		order.Items = items
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.SetAttemptStatus(ctx, attempt.ID, models.AttemptConfirmed, "")
	})
	if err != nil {
		// a concurrent verify of the same payment may have written the order first
		if existing, gErr := s.Repo.GetOrderByGatewayOrder(ctx, in.GatewayOrderID); gErr == nil {
			if existing.UserID != in.UserID {
				return nil, false, fmt.Errorf("%w: payment %s", ErrNotFound, in.GatewayOrderID)
			}
			l.Info("order_already_written", "order_id", existing.ID, "tx_error", err)
			return existing, false, nil
		}
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrAmountMismatch) || errors.Is(err, ErrNotFound) {
			l.Warn("paid_order_rejected", "attempt_id", attempt.ID, "error", err)
			if _, mErr := s.Repo.FailAttempt(ctx, attempt.ID, err.Error()); mErr != nil {
				l.Error("attempt_update_error", "attempt_id", attempt.ID, "error", mErr)
			}
		}
		return nil, false, err
	}

	events.Emit(ctx, s.Events, events.TopicOrder, order.ID.String(), events.Event{
		"type":         "order_created",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total":        order.Total.StringFixed(2),
		"currency":     order.Currency,
	})
	for _, it := range order.Items {
		s.emitStockChanged(ctx, it, -it.Quantity, order.ID)
	}
	l.Info("order_written", "order_id", order.ID, "order_number", order.OrderNumber)

	written, err := s.Repo.GetOrder(ctx, order.ID)
	if err != nil {
		return order, true, nil
	}
	return written, true, nil
}
