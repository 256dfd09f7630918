package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/repository/memory"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
	"github.com/iliyamo/movie-ticket-booking/internal/utils"
)

const (
	jwtSecret     = "router-secret"
	paymentSecret = "rzp-secret"
)

type stubGateway struct {
	mu sync.Mutex
	n  int
}

func (g *stubGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return &payment.Order{ID: fmt.Sprintf("order_%d", g.n), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *stubGateway) Refund(_ context.Context, paymentID string, req payment.RefundRequest) (*payment.Refund, error) {
	return &payment.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
}

func (g *stubGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(orderID, paymentID, signature, paymentSecret)
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.New()
	store.AddScreen(model.Screen{ID: 1, Name: "Screen 1", ScreenType: "2D", RowsCount: 5, SeatsPerRow: 10, PriceStandardMinor: 20000, PricePremiumMinor: 25000})
	store.AddShowtime(model.Showtime{ID: 10, MovieID: 3, ScreenID: 1, ShowDate: "2025-03-01", ShowTime: "18:30", Status: "active", MovieTitle: "Inception"})
	store.AddUser(model.User{ID: 1, Email: "one@example.com", Name: "One"})
	store.AddUser(model.User{ID: 2, Email: "two@example.com", Name: "Two"})

	log := zap.NewNop()
	svc := service.NewService(store, &stubGateway{}, service.NopNotifier{}, service.DefaultBookingConfig(), log)
	h := handler.NewBookingHandler(svc)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.Use(middleware.Recover(log))
	RegisterRoutes(e, handler.Health(nil))
	RegisterBooking(e, h, jwtSecret, BookingMiddleware{
		RateLimit: middleware.NewTokenBucket(config.RateLimitConfig{
			Enabled: true, Capacity: 50, RefillTokens: 1, RefillInterval: time.Second,
			TTL: time.Minute, KeyStrategy: "user_route", Prefix: "rl",
		}, rdb, log),
		LayoutCache: middleware.NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}, rdb, log),
	})
	RegisterAdmin(e, h, jwtSecret)
	return e
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, userID, role, time.Minute)
	require.NoError(t, err)
	return tok.Token
}

func call(t *testing.T, e *echo.Echo, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	e := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCheckoutFlow(t *testing.T) {
	e := newServer(t)
	one := bearer(t, 1, model.RoleCustomer)
	two := bearer(t, 2, model.RoleCustomer)
	admin := bearer(t, 99, model.RoleAdmin)

	code, body := call(t, e, http.MethodGet, "/v1/showtimes/10/seats", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["booked"])
	assert.EqualValues(t, 3000, body["poll_interval_ms"])

	code, body = call(t, e, http.MethodPost, "/v1/showtimes/10/locks", one, `{"seats":["A1","A2"]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []interface{}{"A1", "A2"}, body["locked"])

	code, body = call(t, e, http.MethodPost, "/v1/showtimes/10/locks", two, `{"seats":["A2"]}`)
	require.Equal(t, http.StatusConflict, code)
	failed := body["failed"].([]interface{})
	require.Len(t, failed, 1)
	assert.Equal(t, "locked", failed[0].(map[string]interface{})["reason"])

	_, body = call(t, e, http.MethodGet, "/v1/showtimes/10/seats", one, "")
	assert.Len(t, body["mine"], 2)
	assert.Empty(t, body["locked"])
	_, body = call(t, e, http.MethodGet, "/v1/showtimes/10/seats", two, "")
	assert.Len(t, body["locked"], 2)

	code, body = call(t, e, http.MethodPost, "/v1/showtimes/10/seats/check", two, `{"seats":["A2","A3"]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, []interface{}{"A2"}, body["unavailable"])

	code, body = call(t, e, http.MethodPost, "/v1/orders", one,
		`{"movie_id":3,"screen_id":1,"showtime_id":10,"seats":["A1","A2"],"base_amount":500}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.EqualValues(t, 590, body["amount"])
	assert.EqualValues(t, 59000, body["amount_minor_units"])
	assert.Equal(t, "rzp_test_key", body["provider_key"])
	orderID := body["order_id"].(string)
	bookingID := body["booking_id"].(string)

	verify := fmt.Sprintf(`{"razorpay_order_id":%q,"razorpay_payment_id":"pay_1","razorpay_signature":%q,"booking_id":%q}`,
		orderID, payment.Sign(orderID, "pay_1", "wrong"), bookingID)
	code, body = call(t, e, http.MethodPost, "/v1/payments/verify", one, verify)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "verification_failed", body["code"])

	verify = fmt.Sprintf(`{"razorpay_order_id":%q,"razorpay_payment_id":"pay_1","razorpay_signature":%q,"booking_id":%q}`,
		orderID, payment.Sign(orderID, "pay_1", paymentSecret), bookingID)
	code, body = call(t, e, http.MethodPost, "/v1/payments/verify", two, verify)
	require.Equal(t, http.StatusNotFound, code, body)
	code, body = call(t, e, http.MethodPost, "/v1/payments/verify", one, verify)
	require.Equal(t, http.StatusOK, code, body)
	booking := body["booking"].(map[string]interface{})
	assert.Equal(t, "confirmed", booking["booking_status"])
	assert.Equal(t, "Inception", booking["movie_title"])
	code, _ = call(t, e, http.MethodPost, "/v1/payments/verify", one, verify)
	assert.Equal(t, http.StatusConflict, code)

	_, body = call(t, e, http.MethodGet, "/v1/showtimes/10/seats", "", "")
	assert.Equal(t, []interface{}{"A1", "A2"}, body["booked"])
	assert.Empty(t, body["locked"])

	_, body = call(t, e, http.MethodGet, "/v1/bookings", one, "")
	assert.Len(t, body["bookings"], 1)
	code, _ = call(t, e, http.MethodGet, "/v1/bookings/"+bookingID, two, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, body = call(t, e, http.MethodGet, "/v1/bookings/"+bookingID, admin, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["payments"], 1)

	code, _ = call(t, e, http.MethodPost, "/v1/admin/bookings/"+bookingID+"/refund", one, `{"reason":"sick"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = call(t, e, http.MethodPost, "/v1/admin/bookings/"+bookingID+"/refund", admin, `{"reason":"sick"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "rfnd_1", body["refund_id"])
	assert.EqualValues(t, 590, body["refund_amount"])
	code, body = call(t, e, http.MethodPost, "/v1/admin/bookings/"+bookingID+"/refund", admin, `{}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_refunded", body["code"])

	_, body = call(t, e, http.MethodGet, "/v1/admin/bookings?limit=5", admin, "")
	assert.Len(t, body["bookings"], 1)
	_, body = call(t, e, http.MethodGet, "/v1/showtimes/10/seats", "", "")
	assert.Empty(t, body["booked"])
}

func TestRequestValidation(t *testing.T) {
	e := newServer(t)
	one := bearer(t, 1, model.RoleCustomer)

	code, _ := call(t, e, http.MethodPost, "/v1/showtimes/10/locks", "", `{"seats":["A1"]}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, body := call(t, e, http.MethodPost, "/v1/showtimes/10/locks", one, `{"seats":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["code"])
	code, _ = call(t, e, http.MethodPost, "/v1/showtimes/10/locks", one, `{"seats":["Z99"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, e, http.MethodPost, "/v1/showtimes/abc/locks", one, `{"seats":["A1"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, e, http.MethodPost, "/v1/showtimes/10/locks", one, `{"seats":["MMMMMMMMMMMMMM1"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, e, http.MethodPost, "/v1/orders", one, `{"showtime_id":10,"seats":["A1"],"base_amount":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, e, http.MethodPost, "/v1/orders", one, `{"showtime_id":10,"seats":["A1"],"base_amount":100000000}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, e, http.MethodGet, "/v1/admin/bookings?limit=x", bearer(t, 9, model.RoleAdmin), "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnlockReleasesOwnSeats(t *testing.T) {
	e := newServer(t)
	one := bearer(t, 1, model.RoleCustomer)

	code, _ := call(t, e, http.MethodPost, "/v1/showtimes/10/locks", one, `{"seats":["B1","B2","B3"]}`)
	require.Equal(t, http.StatusOK, code)
	code, body := call(t, e, http.MethodDelete, "/v1/showtimes/10/locks", one, `{"seats":["B1"]}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["released"])
	_, body = call(t, e, http.MethodDelete, "/v1/showtimes/10/locks", one, "")
	assert.EqualValues(t, 2, body["released"])
}

func TestLayoutIsCached(t *testing.T) {
	e := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/screens/1/layout", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 50, body["capacity"])
	assert.EqualValues(t, 250, body["price_premium"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/screens/1/layout", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	code, _ := call(t, e, http.MethodGet, "/v1/screens/7/layout", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}
