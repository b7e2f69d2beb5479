package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zsmoke/pickup-service/internal/catalog"
	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	"github.com/zsmoke/pickup-service/internal/lifecycle"
	"github.com/zsmoke/pickup-service/internal/messaging"
	"github.com/zsmoke/pickup-service/internal/negotiation"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
	"github.com/zsmoke/pickup-service/internal/store"
)

const cronSecret = "sweep-me"

type fakeProvider struct{ bodies []string }

func (f *fakeProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	f.bodies = append(f.bodies, body)
	return "SM123", nil
}

type app struct {
	router http.Handler
	store  *store.MemoryStore
	now    *time.Time
}

func newApp(t *testing.T) *app {
	t.Helper()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	clk := clock.Func(func() time.Time { return now })

	st := store.NewMemoryStore(clk)
	cat := catalog.NewMemoryCatalog(
		catalog.Product{ID: "p1", Name: "Glass Pipe", Price: decimal.RequireFromString("20.00")},
		catalog.Product{ID: "r1", Name: "Silicone Pipe", Price: decimal.RequireFromString("12.00")},
	)
	ev := eventlog.NewMemoryRepository()
	gw := messaging.NewGateway(&fakeProvider{}, clk, map[domain.Location]string{
		domain.LocationNorth: "15125559000",
	})
	notifier := messaging.NewNotifier(gw)
	engine := lifecycle.NewEngine(st, cat, ev, notifier, clk)
	protocol := negotiation.NewProtocol(st, cat, gw, ev, clk)
	sweeper := lifecycle.NewSweeper(st, engine)

	handler := NewHandler(st, engine, protocol, sweeper, ev, cronSecret)
	return &app{router: NewRouter(handler), store: st, now: &now}
}

func (a *app) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return out
}

func createOrderReq() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Dana",
		Phone:         "(512) 555-1234",
		StoreLocation: "north",
		Items:         []CreateOrderItemDTO{{ProductID: "p1", Quantity: 1}},
	}
}

func (a *app) createOrder(t *testing.T) (id, number string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/orders", createOrderReq())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeOrder(t, rec)
	return body["id"].(string), body["orderNumber"].(string)
}

func TestCreateOrder(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/orders", createOrderReq())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeOrder(t, rec)
	if body["status"] != "pending" {
		t.Errorf("status = %v", body["status"])
	}
	if body["orderNumber"] != "ZS-000001" {
		t.Errorf("orderNumber = %v", body["orderNumber"])
	}
	if body["total"] != "21.65" {
		t.Errorf("total = %v", body["total"])
	}
}

func TestCreateOrderValidation(t *testing.T) {
	a := newApp(t)

	req := createOrderReq()
	req.Phone = "123"
	rec := a.do(t, http.MethodPost, "/orders", req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad phone status = %d", rec.Code)
	}

	req = createOrderReq()
	req.Items[0].ProductID = "ghost"
	rec = a.do(t, http.MethodPost, "/orders", req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product status = %d", rec.Code)
	}
	var errResp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error != "product_not_found" {
		t.Errorf("error code = %q", errResp.Error)
	}

	rec = a.do(t, http.MethodPost, "/orders", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d", rec.Code)
	}
}

func TestGetOrder(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)

	rec := a.do(t, http.MethodGet, "/orders/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/orders/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d", rec.Code)
	}
}

func TestTrackOrder(t *testing.T) {
	a := newApp(t)
	_, number := a.createOrder(t)

	// Differently formatted phone still matches.
	q := url.Values{"orderNumber": {number}, "phone": {"512-555-1234"}}
	rec := a.do(t, http.MethodGet, "/orders/track?"+q.Encode(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Lowercased order number works too.
	q = url.Values{"orderNumber": {strings.ToLower(number)}, "phone": {"5125551234"}}
	rec = a.do(t, http.MethodGet, "/orders/track?"+q.Encode(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("lowercase number status = %d", rec.Code)
	}

	// Wrong phone gets a vague 403.
	q = url.Values{"orderNumber": {number}, "phone": {"5125559999"}}
	rec = a.do(t, http.MethodGet, "/orders/track?"+q.Encode(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong phone status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "phone") {
		t.Errorf("mismatch response must not say which field was wrong: %s", rec.Body.String())
	}

	// Unknown number is 404.
	q = url.Values{"orderNumber": {"ZS-999999"}, "phone": {"5125551234"}}
	rec = a.do(t, http.MethodGet, "/orders/track?"+q.Encode(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown number status = %d", rec.Code)
	}

	// Missing contact info is 400.
	q = url.Values{"orderNumber": {number}}
	rec = a.do(t, http.MethodGet, "/orders/track?"+q.Encode(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing contact status = %d", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)
	a.createOrder(t)

	rec := a.do(t, http.MethodGet, "/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var orders []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &orders)
	if len(orders) != 2 {
		t.Errorf("got %d orders", len(orders))
	}

	// Move one order on and filter by status.
	rec = a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: "confirmed", Staff: "sam"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status: %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/orders?status=confirmed", nil)
	json.Unmarshal(rec.Body.Bytes(), &orders)
	if len(orders) != 1 {
		t.Errorf("confirmed filter got %d orders", len(orders))
	}

	rec = a.do(t, http.MethodGet, "/orders?status=shipped", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/orders?stats=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats store.Stats
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.Today.Total != 2 {
		t.Errorf("today total = %d", stats.Today.Total)
	}
}

func TestUpdateStatusFlow(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)

	for _, status := range []string{"confirmed", "ready", "picked-up"} {
		rec := a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: status, Staff: "sam"})
		if rec.Code != http.StatusOK {
			t.Fatalf("-> %s: %d %s", status, rec.Code, rec.Body.String())
		}
	}

	// Terminal orders accept nothing further.
	rec := a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: "ready", Staff: "sam"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("transition out of picked-up = %d", rec.Code)
	}
	var errResp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error != "invalid_transition" {
		t.Errorf("error code = %q", errResp.Error)
	}
}

func TestSuggestAndStaffDirectReplacement(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)

	// Async suggestion leaves the total alone.
	rec := a.do(t, http.MethodPost, "/orders/"+id+"/suggest-replacement", SuggestReplacementRequest{
		OrderItemIndex:       0,
		ReplacementProductID: "r1",
		Staff:                "sam",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("suggest: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeOrder(t, rec)
	if body["total"] != "21.65" {
		t.Errorf("total after suggest = %v, must be unchanged", body["total"])
	}

	// Staff-direct action swaps and recalculates immediately.
	rec = a.do(t, http.MethodPost, "/orders/"+id+"/actions", ActionRequest{
		Action:               "suggest-replacement",
		OrderItemIndex:       0,
		ReplacementProductID: "r1",
		Staff:                "sam",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("action: %d %s", rec.Code, rec.Body.String())
	}
	body = decodeOrder(t, rec)
	// 12.00 + 0.99 tax.
	if body["total"] != "12.99" {
		t.Errorf("total after staff-direct swap = %v", body["total"])
	}

	rec = a.do(t, http.MethodPost, "/orders/"+id+"/actions", ActionRequest{Action: "launch"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action = %d", rec.Code)
	}
}

func TestSMSWebhookAlwaysAnswersTwiML(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)
	rec := a.do(t, http.MethodPost, "/orders/"+id+"/suggest-replacement", SuggestReplacementRequest{
		OrderItemIndex: 0, ReplacementProductID: "r1", Staff: "sam",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("suggest: %d", rec.Code)
	}

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/sms", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		out := httptest.NewRecorder()
		a.router.ServeHTTP(out, req)
		return out
	}

	// Approval from the customer's number.
	out := post(url.Values{"From": {"+15125551234"}, "Body": {"YES"}, "MessageSid": {"SMIN1"}})
	if out.Code != http.StatusOK {
		t.Errorf("status = %d, webhook must always answer 200", out.Code)
	}
	if ct := out.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(out.Body.String(), "<Response><Message>") {
		t.Errorf("body = %q", out.Body.String())
	}
	if !strings.Contains(out.Body.String(), "Silicone Pipe") {
		t.Errorf("approval reply = %q", out.Body.String())
	}

	// A number with no orders still gets a friendly 200.
	out = post(url.Values{"From": {"19995550000"}, "Body": {"hello"}, "MessageSid": {"SMIN2"}})
	if out.Code != http.StatusOK {
		t.Errorf("unknown number status = %d", out.Code)
	}
	if !strings.Contains(out.Body.String(), "find a pending order") {
		t.Errorf("unknown number reply = %q", out.Body.String())
	}

	// Even an empty form answers 200 TwiML.
	out = post(url.Values{})
	if out.Code != http.StatusOK {
		t.Errorf("empty form status = %d", out.Code)
	}
}

func TestCronEndpoint(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)
	a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: "confirmed", Staff: "sam"})
	a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: "ready", Staff: "sam"})

	// No token, wrong token: 401.
	req := httptest.NewRequest(http.MethodGet, "/cron/expire-orders", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cron/expire-orders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", rec.Code)
	}

	sweep := func() ExpireResponse {
		req := httptest.NewRequest(http.MethodGet, "/cron/expire-orders", nil)
		req.Header.Set("Authorization", "Bearer "+cronSecret)
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("sweep status = %d", rec.Code)
		}
		var out ExpireResponse
		json.Unmarshal(rec.Body.Bytes(), &out)
		return out
	}

	if got := sweep(); got.Expired != 0 {
		t.Errorf("expired %d before the deadline", got.Expired)
	}

	*a.now = a.now.Add(61 * time.Minute)
	if got := sweep(); got.Expired != 1 {
		t.Errorf("expired %d, want 1", got.Expired)
	}
	if got := sweep(); got.Expired != 0 {
		t.Errorf("second sweep expired %d, want 0", got.Expired)
	}
}

func TestOrderEvents(t *testing.T) {
	a := newApp(t)
	id, _ := a.createOrder(t)
	a.do(t, http.MethodPost, "/orders/"+id+"/update-status", UpdateStatusRequest{Status: "confirmed", Staff: "sam"})

	rec := a.do(t, http.MethodGet, "/orders/"+id+"/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []EventResponse
	json.Unmarshal(rec.Body.Bytes(), &events)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].To != "pending" || events[1].To != "confirmed" {
		t.Errorf("events = %+v", events)
	}
	if events[1].Actor != "sam" {
		t.Errorf("actor = %q", events[1].Actor)
	}

	rec = a.do(t, http.MethodGet, "/orders/missing/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d", rec.Code)
	}
}
