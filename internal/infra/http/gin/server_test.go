package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/engine"
	"shutterbook/internal/app/middleware"
	appoutbox "shutterbook/internal/app/outbox"
	ginserver "shutterbook/internal/infra/http/gin"
	"shutterbook/internal/infra/invoicing"
	"shutterbook/internal/infra/obs"
	"shutterbook/internal/infra/storage/memory"
)

const adminToken = "s3cret"

var fixedNow = time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newRouter(t *testing.T) (*gin.Engine, *memory.Outbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	dir := memory.NewDirectory()
	_ = dir.AddClient(ctx, "c-1", "Ada")
	_ = dir.AddResource(ctx, "p-1", "Grace")
	box := memory.NewOutbox()
	eng := engine.New(engine.Deps{
		Store:       memory.NewStore(),
		Clients:     dir,
		Resources:   dir,
		Packages:    dir,
		Financial:   invoicing.Generator{Clock: clock},
		Audit:       memory.NewActivityLog(),
		Outbox:      box,
		Encoder:     appoutbox.JSONEventEncoder{},
		Idempotency: memory.NewIdempotencyStore(),
		Authorizer:  middleware.AdminAuthorizer,
		Clock:       clock,
	})
	router := ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, ginserver.NewHandlers(eng.Commands, eng.Queries, adminToken, nil))
	return router, box
}

type call struct {
	method  string
	path    string
	body    any
	admin   bool
	headers map[string]string
}

func do(t *testing.T, router http.Handler, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&body).Encode(c.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func bookingBody(overrides map[string]any) map[string]any {
	body := map[string]any{
		"client_id":       "c-1",
		"event_type":      "Wedding",
		"preferred_date":  "2030-06-15",
		"preferred_start": "14:00",
		"duration_hours":  2.5,
		"location":        "Old Town Hall",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func createBooking(t *testing.T, router http.Handler, overrides map[string]any) string {
	t.Helper()
	rec, out := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody(overrides)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: status %d body %s", rec.Code, rec.Body.String())
	}
	return out["id"].(string)
}

func TestBookingStatusMapping(t *testing.T) {
	router, _ := newRouter(t)
	pending := createBooking(t, router, nil)
	assigned := createBooking(t, router, map[string]any{"resource_id": "p-1"})

	cases := []struct {
		name   string
		call   call
		status int
		code   string
	}{
		{"past date", call{method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody(map[string]any{"preferred_date": "2030-06-01"})}, http.StatusBadRequest, "PastDate"},
		{"bad date format", call{method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody(map[string]any{"preferred_date": "15/06/2030"})}, http.StatusBadRequest, "InvalidDate"},
		{"unknown client", call{method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody(map[string]any{"client_id": "nobody"})}, http.StatusNotFound, "ClientNotFound"},
		{"unknown booking", call{method: http.MethodGet, path: "/api/v1/bookings/missing"}, http.StatusNotFound, "NotFound"},
		{"confirm without token", call{method: http.MethodPost, path: "/api/v1/bookings/" + assigned + "/confirm"}, http.StatusForbidden, "Forbidden"},
		{"confirm without photographer", call{method: http.MethodPost, path: "/api/v1/bookings/" + pending + "/confirm", admin: true}, http.StatusUnprocessableEntity, "NoResourceAssigned"},
		{"decline without reason", call{method: http.MethodPost, path: "/api/v1/bookings/" + pending + "/decline", admin: true, body: map[string]any{"reason": " "}}, http.StatusBadRequest, "ReasonRequired"},
		{"reopen pending", call{method: http.MethodPost, path: "/api/v1/bookings/" + pending + "/reopen", admin: true}, http.StatusConflict, "NotCancelledReopen"},
		{"convert pending", call{method: http.MethodPost, path: "/api/v1/bookings/" + pending + "/convert", admin: true}, http.StatusConflict, "InvalidState"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := do(t, router, tc.call)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			if out["code"] != tc.code {
				t.Fatalf("code = %v, want %s", out["code"], tc.code)
			}
		})
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	router, box := newRouter(t)
	id := createBooking(t, router, map[string]any{"resource_id": "p-1"})

	rec, out := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/confirm", admin: true,
		body: map[string]any{"admin_notes": "bring the drone"}})
	if rec.Code != http.StatusOK || out["status"] != "Confirmed" {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/convert", admin: true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert: %d %s", rec.Code, rec.Body.String())
	}
	if out["financial_record_number"] != "INV-203006-0001" {
		t.Fatalf("number = %v", out["financial_record_number"])
	}
	if out["hours"].(float64) != 2 || out["minutes"].(float64) != 30 {
		t.Fatalf("duration split = %v/%v", out["hours"], out["minutes"])
	}

	rec, out = do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/convert", admin: true})
	if rec.Code != http.StatusUnprocessableEntity || out["code"] != "AlreadyConverted" {
		t.Fatalf("second convert: %d %s", rec.Code, rec.Body.String())
	}
	if box.Pending() == 0 {
		t.Fatal("expected domain events in the outbox")
	}
}

func TestCreateBookingIdempotencyKeyReplays(t *testing.T) {
	router, _ := newRouter(t)
	first := call{method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody(nil),
		headers: map[string]string{"Idempotency-Key": "req-42"}}
	rec1, out1 := do(t, router, first)
	rec2, out2 := do(t, router, first)
	if rec1.Code != http.StatusCreated || rec2.Code != http.StatusCreated {
		t.Fatalf("status = %d / %d", rec1.Code, rec2.Code)
	}
	if out1["id"] != out2["id"] || out1["reference"] != out2["reference"] {
		t.Fatalf("replay returned a different booking: %v vs %v", out1["id"], out2["id"])
	}

	_, list := do(t, router, call{method: http.MethodGet, path: "/api/v1/bookings"})
	if items := list["items"].([]any); len(items) != 1 {
		t.Fatalf("bookings = %d, want 1", len(items))
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	router, _ := newRouter(t)
	slot := map[string]any{"resource_id": "p-1", "start": "2030-06-10T10:00:00Z", "end": "2030-06-10T12:00:00Z"}

	rec, _ := do(t, router, call{method: http.MethodPost, path: "/api/v1/availability/slots", body: slot})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous create slot: %d", rec.Code)
	}
	rec, created := do(t, router, call{method: http.MethodPost, path: "/api/v1/availability/slots", body: slot, admin: true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create slot: %d %s", rec.Code, rec.Body.String())
	}
	overlap := map[string]any{"resource_id": "p-1", "start": "2030-06-10T11:00:00Z", "end": "2030-06-10T13:00:00Z"}
	rec, out := do(t, router, call{method: http.MethodPost, path: "/api/v1/availability/blocks", body: overlap, admin: true})
	if rec.Code != http.StatusConflict || out["code"] != "OverlapConflict" {
		t.Fatalf("overlapping block: %d %s", rec.Code, rec.Body.String())
	}

	_, avail := do(t, router, call{method: http.MethodGet, path: "/api/v1/availability/available?date=2030-06-10&resource_id=p-1"})
	if items := avail["items"].([]any); len(items) != 1 {
		t.Fatalf("available = %d, want 1", len(items))
	}

	rec, out = do(t, router, call{method: http.MethodPost, path: "/api/v1/availability/recurring", admin: true,
		body: map[string]any{"resource_id": "p-1", "weekday": "monday", "start_time": "11:00", "end_time": "12:00", "until": "2030-06-24"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("recurring: %d %s", rec.Code, rec.Body.String())
	}
	if got := len(out["created"].([]any)); got != 2 {
		t.Fatalf("recurring created = %d, want 2", got)
	}
	if skipped := out["skipped_dates"].([]any); len(skipped) != 1 || skipped[0] != "2030-06-10" {
		t.Fatalf("skipped = %v", skipped)
	}

	rec, out = do(t, router, call{method: http.MethodPost, path: "/api/v1/availability/recurring", admin: true,
		body: map[string]any{"resource_id": "p-1", "weekday": "someday", "start_time": "11:00", "end_time": "12:00", "until": "2030-06-24"}})
	if rec.Code != http.StatusBadRequest || out["code"] != "InvalidWeekday" {
		t.Fatalf("bad weekday: %d %s", rec.Code, rec.Body.String())
	}

	id := created["id"].(string)
	rec, _ = do(t, router, call{method: http.MethodDelete, path: "/api/v1/availability/slots/" + id, admin: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete slot: %d %s", rec.Code, rec.Body.String())
	}
}

func TestActivityEndpoint(t *testing.T) {
	router, _ := newRouter(t)
	id := createBooking(t, router, map[string]any{"resource_id": "p-1"})
	if rec, _ := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/cancel"}); rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, out := do(t, router, call{method: http.MethodGet, path: "/api/v1/activity/booking/" + id})
	if rec.Code != http.StatusOK {
		t.Fatalf("activity: status %d body %s", rec.Code, rec.Body.String())
	}
	items, _ := out["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %v", out["items"])
	}
	if latest := items[0].(map[string]any); latest["action"] != "Updated" || latest["entity_id"] != id {
		t.Fatalf("latest = %v", latest)
	}

	rec, out = do(t, router, call{method: http.MethodGet, path: "/api/v1/activity/booking/" + id + "?limit=zero"})
	if rec.Code != http.StatusBadRequest || out["code"] != "InvalidLimit" {
		t.Fatalf("bad limit: status %d body %v", rec.Code, out)
	}
}

func TestNewHandlersRegistersEveryGroup(t *testing.T) {
	h := ginserver.NewHandlers(nil, nil, adminToken, nil)
	if h.Booking == nil || h.Availability == nil || h.Activity == nil || h.Actor == nil {
		t.Fatalf("handlers = %+v", h)
	}
	router := ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, h)
	want := map[string]bool{
		"GET /api/v1/bookings/:id":          false,
		"POST /api/v1/availability/slots":   false,
		"GET /api/v1/activity/:kind/:id":    false,
		"POST /api/v1/bookings/:id/convert": false,
	}
	for _, r := range router.Routes() {
		if _, ok := want[r.Method+" "+r.Path]; ok {
			want[r.Method+" "+r.Path] = true
		}
	}
	for route, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newRouter(t)
	rec, _ := do(t, router, call{method: http.MethodGet, path: "/livez"})
	if rec.Code != http.StatusOK {
		t.Fatalf("livez = %d", rec.Code)
	}
	rec, _ = do(t, router, call{method: http.MethodGet, path: "/readyz"})
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}
