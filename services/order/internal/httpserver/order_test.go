package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/skincare_shop/pkg/db/dbtest"
	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/httpx"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/gateway"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/order/internal/signature"
)

var jwtSecret = []byte("test-secret")

const rzpSecret = "s3cr3t"

type stubGateway struct {
	err error
}

func (s *stubGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.Order{ID: "order_" + req.Receipt[:8], Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: gateway.OrderCreated}, nil
}

func (s *stubGateway) FetchOrder(context.Context, string) (*gateway.Order, error) {
	return nil, gateway.ErrRejected
}

type testEnv struct {
	e   *echo.Echo
	svc *service.OrderService
	gw  *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t,
		&models.ProductRef{}, &models.UserRef{},
		&models.PaymentAttempt{}, &models.Order{}, &models.OrderItem{},
	)
	gw := &stubGateway{}
	svc := &service.OrderService{
		Repo:    &repo.GormRepo{DB: db},
		Gateway: gw,
		Events:  &events.Recorder{},
		Opts: service.Options{
			KeySecret:        rzpSecret,
			Currency:         "INR",
			PayableTolerance: decimal.RequireFromString("0.01"),
			TaxRate:          decimal.RequireFromString("0.18"),
		},
	}

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	Register(e, &Deps{OrderHandler: &OrderHTTP{Svc: svc}, JWTSecret: jwtSecret})
	return &testEnv{e: e, svc: svc, gw: gw}
}

func cookieFor(t *testing.T, userID uuid.UUID, role string) *http.Cookie {
	t.Helper()
	tok, err := tokens.SignAccess(userID.String(), role, time.Now().Add(time.Minute), jwtSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: jwthelp.AccessCookie, Value: tok}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var envl httpx.Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envl), rec.Body.String())
	}
	return rec, envl
}

func (env *testEnv) product(t *testing.T, price string, stock int) models.ProductRef {
	t.Helper()
	p := models.ProductRef{ID: uuid.New(), Title: "Sunscreen", Slug: "sunscreen-" + uuid.NewString()[:6], SellingPrice: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, env.svc.Repo.DB.Create(&p).Error)
	return p
}

func productsBody(id uuid.UUID, qty int) []map[string]any {
	return []map[string]any{{"id": id.String(), "quantity": qty}}
}

func (env *testEnv) captureAndVerifyBody(t *testing.T, userID uuid.UUID, p models.ProductRef, qty int) map[string]any {
	t.Helper()
	rec, body := env.do(t, http.MethodPost, "/order/capturePayment",
		map[string]any{"products": productsBody(p.ID, qty)}, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, body.Success)

	data := body.Data.(map[string]any)
	orderID := data["id"].(string)
	return map[string]any{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  signature.Sign(rzpSecret, orderID, "pay_123"),
		"products":            productsBody(p.ID, qty),
		"address": map[string]any{
			"name": "Asha", "address": "12 MG Road", "city": "Pune", "state": "MH", "pincode": "411001",
		},
		"payable": p.SellingPrice.Mul(decimal.NewFromInt(int64(qty))).String(),
	}
}

func TestCaptureAndVerify(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	p := env.product(t, "500", 5)

	verify := env.captureAndVerifyBody(t, userID, p, 2)

	rec, body := env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(t, body.Success)
	require.Equal(t, "payment verified", body.Message)

	rec, body = env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)
}

func TestCapturePayment_AmountInMinorUnits(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "500", 5)

	rec, body := env.do(t, http.MethodPost, "/order/capturePayment",
		map[string]any{"products": productsBody(p.ID, 2)}, cookieFor(t, uuid.New(), tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 100000, body.Data.(map[string]any)["amount"])
}

func TestCapturePayment_Errors(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "500", 5)
	client := cookieFor(t, uuid.New(), tokens.RoleClient)

	rec, body := env.do(t, http.MethodPost, "/order/capturePayment", map[string]any{"products": productsBody(uuid.New(), 1)}, client)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, body.Success)
	require.Equal(t, httpx.CodeNotFound, body.Code)

	rec, body = env.do(t, http.MethodPost, "/order/capturePayment", map[string]any{"products": []any{}}, client)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, httpx.CodeValidation, body.Code)

	env.gw.err = context.DeadlineExceeded
	rec, body = env.do(t, http.MethodPost, "/order/capturePayment", map[string]any{"products": productsBody(p.ID, 1)}, client)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, httpx.CodeUpstream, body.Code)
}

func TestVerifyPayment_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/order/verifyPayment", map[string]any{"razorpay_order_id": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httpx.CodeUnauthorized, body.Code)
}

func TestVerifyPayment_SignatureMismatch(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	p := env.product(t, "500", 5)

	verify := env.captureAndVerifyBody(t, userID, p, 1)
	verify["razorpay_signature"] = signature.Sign("wrong", verify["razorpay_order_id"].(string), "pay_123")

	rec, body := env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, body.Success)
	require.Equal(t, httpx.CodeSignatureMismatch, body.Code)
}

func TestVerifyPayment_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	p := env.product(t, "500", 2)

	verify := env.captureAndVerifyBody(t, userID, p, 2)
	require.NoError(t, env.svc.Repo.DB.Model(&models.ProductRef{}).Where("id = ?", p.ID).Update("stock", 0).Error)

	rec, body := env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, httpx.CodeInsufficientStock, body.Code)
}

func TestGetAll_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/order/getAll", nil, cookieFor(t, uuid.New(), tokens.RoleClient))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/order/getAll", nil, cookieFor(t, uuid.New(), tokens.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)
	require.Equal(t, []any{}, body.Data)
}

func TestGetForUser(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	p := env.product(t, "500", 5)

	verify := env.captureAndVerifyBody(t, userID, p, 1)
	rec, _ := env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/order/get/"+userID.String(), nil, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Data, 1)
	meta := body.Meta.(map[string]any)
	require.EqualValues(t, 1, meta["total"])

	rec, _ = env.do(t, http.MethodGet, "/order/get/"+userID.String(), nil, cookieFor(t, uuid.New(), tokens.RoleClient))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// a user without orders gets an empty list, not an error
	other := uuid.New()
	rec, body = env.do(t, http.MethodGet, "/order/get/"+other.String(), nil, cookieFor(t, other, tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)
	require.Equal(t, []any{}, body.Data)
}

func TestUpdateOrder(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	p := env.product(t, "500", 5)
	admin := cookieFor(t, uuid.New(), tokens.RoleAdmin)

	verify := env.captureAndVerifyBody(t, userID, p, 1)
	_, created := env.do(t, http.MethodPost, "/order/verifyPayment", verify, cookieFor(t, userID, tokens.RoleClient))
	orderID := created.Data.(map[string]any)["id"].(string)

	rec, _ := env.do(t, http.MethodPut, "/order/update/"+orderID, map[string]any{"orderStatus": "processing"}, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodPut, "/order/update/"+orderID, map[string]any{"orderStatus": "delivered"}, admin)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, httpx.CodeInvalidTransition, body.Code)

	rec, body = env.do(t, http.MethodPut, "/order/update/"+orderID, map[string]any{"orderStatus": "unknown"}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, httpx.CodeValidation, body.Code)

	rec, _ = env.do(t, http.MethodPut, "/order/update/"+uuid.NewString(), map[string]any{"orderStatus": "processing"}, admin)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(t, http.MethodPut, "/order/update/"+orderID, map[string]any{"orderStatus": "processing"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "processing", body.Data.(map[string]any)["status"])

	rec, body = env.do(t, http.MethodGet, "/order/"+orderID, nil, cookieFor(t, userID, tokens.RoleClient))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "processing", body.Data.(map[string]any)["status"])
}

func TestQuote_Public(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "590", 1)

	rec, body := env.do(t, http.MethodPost, "/cart/quote", map[string]any{"products": productsBody(p.ID, 2)})
	require.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]any)
	require.Equal(t, "1180", data["total"])
	require.Equal(t, "180", data["tax"])
	line := data["lines"].([]any)[0].(map[string]any)
	require.Equal(t, false, line["in_stock"])
	require.EqualValues(t, 1, line["available"])
}
