package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/skincare_shop/services/order/internal/cart"
)

type ProductLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type CapturePaymentRequest struct {
	Products []ProductLine `json:"products"`
}

type QuoteRequest struct {
	Products []ProductLine `json:"products"`
}

type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpaySignature string          `json:"razorpay_signature"`
	Products          []ProductLine   `json:"products"`
	Address           Address         `json:"address"`
	Payable           decimal.Decimal `json:"payable"`
}

type UpdateOrderRequest struct {
	OrderStatus string `json:"orderStatus"`
	ShipmentID  string `json:"shipmentId"`
}

type QuoteLine struct {
	cart.Line
	LineTotal decimal.Decimal `json:"line_total"`
	Available int             `json:"available"`
	InStock   bool            `json:"in_stock"`
}

type QuoteResponse struct {
	Lines []QuoteLine `json:"lines"`
	cart.Totals
}
