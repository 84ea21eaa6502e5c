package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budget/internal/analytics"
	"budget/internal/cache"
	"budget/internal/kv"
	"budget/internal/kv/memory"
	"budget/internal/services"
)

var october2023 = time.Date(2023, time.October, 15, 12, 0, 0, 0, time.UTC)

// failingStore accepts reads but rejects every write.
type failingStore struct{ *memory.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, backend kv.Store, rpm int) (*Server, *services.TransactionStore) {
	t.Helper()
	store := services.NewTransactionStore(backend)
	store.Load(context.Background())
	t.Cleanup(store.Close)

	dash := services.NewDashboardService(store,
		cache.NewLRUCache[analytics.Summary](8, time.Minute),
		services.WithClock(func() time.Time { return october2023 }))

	srv := NewServer(":0", Deps{
		Store:             store,
		Dashboard:         dash,
		Backend:           pinger{},
		RequestsPerMinute: rpm,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if strings.HasPrefix(strings.TrimSpace(body), "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv.Handler, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rec.Code, rec.Body)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}

	srv.backend = pinger{err: errors.New("database is locked")}
	rec := do(t, srv.Handler, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend = %d", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	backend := memory.New()
	srv, store := newTestServer(t, backend, 0)

	rec := do(t, srv.Handler, http.MethodPost, "/api/transactions",
		`{"title":"Lunch","amount":"1234.5","type":"expense","category":"Food","date":"2023-10-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	got := decode[map[string]any](t, rec)
	if got["persisted"] != true {
		t.Fatalf("persisted = %v", got["persisted"])
	}
	tx := got["transaction"].(map[string]any)
	if tx["display"] != "1,234.50 EGP" || tx["category"] != "Food" || tx["date"] != "2023-10-05" {
		t.Fatalf("transaction = %v", tx)
	}
	if tx["id"] == "" {
		t.Fatal("id not assigned")
	}
	if rec.Header().Get(HeaderStorageWarning) != "" {
		t.Fatal("unexpected storage warning")
	}
	if len(store.Snapshot().Transactions) != 1 {
		t.Fatal("store not updated")
	}
	if _, err := backend.Get(context.Background(), kv.TransactionsKey); err != nil {
		t.Fatalf("not persisted: %v", err)
	}
}

func TestCreateTransactionFormEncoded(t *testing.T) {
	srv, store := newTestServer(t, memory.New(), 0)

	body := url.Values{
		"title":    {"Salary"},
		"amount":   {"2000"},
		"type":     {"income"},
		"category": {"Rent"},
		"date":     {"2023-10-01"},
	}.Encode()
	rec := do(t, srv.Handler, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if c := store.Snapshot().Transactions[0].Category; c != "" {
		t.Fatalf("income stored with category %q", c)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, store := newTestServer(t, memory.New(), 0)

	rec := do(t, srv.Handler, http.MethodPost, "/api/transactions",
		`{"title":" ","amount":"abc","type":"expense","date":"2023-10-05"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	want := map[string]string{
		"title":    "Title is required",
		"amount":   "Please enter a valid amount",
		"category": "Category is required for expenses",
	}
	for k, v := range want {
		if body.Fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, body.Fields[k], v)
		}
	}
	if len(store.Snapshot().Transactions) != 0 {
		t.Fatal("invalid draft changed the store")
	}

	for _, bad := range []string{"", "{not json"} {
		if rec := do(t, srv.Handler, http.MethodPost, "/api/transactions", bad); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q status=%d", bad, rec.Code)
		}
	}
}

func TestCreateTransactionStorageWarning(t *testing.T) {
	srv, store := newTestServer(t, failingStore{memory.New()}, 0)

	rec := do(t, srv.Handler, http.MethodPost, "/api/transactions",
		`{"title":"Coffee","amount":3,"type":"expense","category":"Food","date":"2023-10-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if rec.Header().Get(HeaderStorageWarning) == "" {
		t.Fatal("missing storage warning header")
	}
	if got := decode[map[string]any](t, rec); got["persisted"] != false {
		t.Fatalf("persisted = %v", got["persisted"])
	}
	if len(store.Snapshot().Transactions) != 1 {
		t.Fatal("in-memory append lost")
	}

	ready := decode[map[string]any](t, do(t, srv.Handler, http.MethodGet, "/readyz", ""))
	st := ready["checks"].(map[string]any)["store"].(map[string]any)
	if st["status"] != "unsaved_changes" {
		t.Fatalf("store check = %v", st)
	}
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	for _, body := range []string{
		`{"title":"Salary","amount":"1000","type":"income","date":"2023-10-01"}`,
		`{"title":"Rent","amount":"400","type":"expense","category":"Rent","date":"2023-10-03"}`,
		`{"title":"Dinner","amount":"50","type":"expense","category":"Food","date":"2023-09-20"}`,
		`{"title":"Bonus","amount":"200","type":"income","date":"2023-09-10"}`,
	} {
		if rec := do(t, h, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rec.Code, rec.Body)
		}
	}
}

func TestListTransactions(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)
	seed(t, srv.Handler)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Rent", "Salary", "Dinner", "Bonus"}},
		{"?sort=asc", []string{"Bonus", "Dinner", "Salary", "Rent"}},
		{"?filter=income", []string{"Salary", "Bonus"}},
		{"?filter=expense&sort=asc", []string{"Dinner", "Rent"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv.Handler, http.MethodGet, "/api/transactions"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d", rec.Code)
			}
			body := decode[struct {
				Count        int `json:"count"`
				Transactions []struct {
					Title string `json:"title"`
				} `json:"transactions"`
			}](t, rec)
			var titles []string
			for _, tx := range body.Transactions {
				titles = append(titles, tx.Title)
			}
			if strings.Join(titles, ",") != strings.Join(tt.want, ",") || body.Count != len(tt.want) {
				t.Fatalf("titles = %v, want %v", titles, tt.want)
			}
		})
	}

	if rec := do(t, srv.Handler, http.MethodGet, "/api/transactions?filter=transfers", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter status=%d", rec.Code)
	}
	if rec := do(t, srv.Handler, http.MethodGet, "/api/transactions?sort=sideways", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid sort status=%d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)

	empty := decode[map[string]any](t, do(t, srv.Handler, http.MethodGet, "/api/summary", ""))
	if v, ok := empty["spending_percentage"]; !ok || v != nil {
		t.Fatalf("spending_percentage should be null without income, got %v", v)
	}

	seed(t, srv.Handler)
	rec := do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	sum := decode[struct {
		Month              string `json:"month"`
		MonthLabel         string `json:"month_label"`
		Income             amountView
		Expense            amountView
		Balance            amountView
		SpendingPercentage *string `json:"spending_percentage"`
		SpendingDisplay    string  `json:"spending_display"`
		Breakdown          []struct {
			Category string `json:"category"`
			Color    string `json:"color"`
		} `json:"breakdown"`
		MonthlyIncome []struct {
			Label string `json:"label"`
		} `json:"monthly_income"`
	}](t, rec)

	if sum.Month != "2023-10" || sum.MonthLabel != "Oct 2023" {
		t.Fatalf("month = %s / %s", sum.Month, sum.MonthLabel)
	}
	if sum.Income.Display != "1,000 EGP" || sum.Expense.Display != "400 EGP" || sum.Balance.Display != "600 EGP" {
		t.Fatalf("figures = %+v %+v %+v", sum.Income, sum.Expense, sum.Balance)
	}
	if sum.SpendingPercentage == nil || *sum.SpendingPercentage != "40" || sum.SpendingDisplay != "40%" {
		t.Fatalf("spending = %v %q", sum.SpendingPercentage, sum.SpendingDisplay)
	}
	if len(sum.Breakdown) != 2 || sum.Breakdown[0].Category != "Food" || sum.Breakdown[0].Color != "#FFA726" {
		t.Fatalf("breakdown = %+v", sum.Breakdown)
	}
	if len(sum.MonthlyIncome) != 2 || sum.MonthlyIncome[0].Label != "Sep 2023" {
		t.Fatalf("monthly income = %+v", sum.MonthlyIncome)
	}

	sep := decode[map[string]any](t, do(t, srv.Handler, http.MethodGet, "/api/summary?month=2023-09", ""))
	if sep["month"] != "2023-09" {
		t.Fatalf("month override = %v", sep["month"])
	}
	if rec := do(t, srv.Handler, http.MethodGet, "/api/summary?month=september", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)

	got := decode[validationView](t, do(t, srv.Handler, http.MethodPost, "/api/transactions/validate",
		`{"title":"Rent","amount":"500","type":"expense","date":"2023-10-01"}`))
	if got.Valid || got.Errors["category"] != "Category is required for expenses" {
		t.Fatalf("validation = %+v", got)
	}

	got = decode[validationView](t, do(t, srv.Handler, http.MethodPost, "/api/transactions/validate",
		`{"title":"Salary","amount":"500","type":"income","date":"2023-10-01"}`))
	if !got.Valid || len(got.Errors) != 0 {
		t.Fatalf("validation = %+v", got)
	}
}

func TestAmountInput(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)

	tests := []struct {
		current, input string
		want           amountInputView
	}{
		{"12", "12a3", amountInputView{Amount: "123", Accepted: true}},
		{"12.5", "12.5.", amountInputView{Amount: "12.5", Accepted: false}},
		{"", "7.", amountInputView{Amount: "7.", Accepted: true}},
	}
	for _, tt := range tests {
		body, _ := json.Marshal(map[string]string{"current": tt.current, "input": tt.input})
		got := decode[amountInputView](t, do(t, srv.Handler, http.MethodPost, "/api/form/amount", string(body)))
		if got != tt.want {
			t.Errorf("input %q -> %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestFormDefaultsAndCategories(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)

	f := decode[map[string]any](t, do(t, srv.Handler, http.MethodGet, "/api/form", ""))
	if f["type"] != "expense" || f["date"] != "2023-10-15" {
		t.Fatalf("form defaults = %v", f)
	}

	cats := decode[categoriesView](t, do(t, srv.Handler, http.MethodGet, "/api/categories", ""))
	if len(cats.Categories) != 5 || cats.Categories[4].Color != "#FF7043" {
		t.Fatalf("categories = %+v", cats.Categories)
	}
}

func TestRateLimitOnPost(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 1)
	body := `{"title":"x","amount":"1","type":"income","date":"2023-10-01"}`

	if rec := do(t, srv.Handler, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec := do(t, srv.Handler, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d", rec.Code)
	}
	if decode[errorBody](t, rec).RequestID == "" {
		t.Fatal("error body should carry the request id")
	}
	for i := 0; i < 3; i++ {
		if rec := do(t, srv.Handler, http.MethodGet, "/api/transactions", ""); rec.Code != http.StatusOK {
			t.Fatalf("GET limited: %d", rec.Code)
		}
	}
}

func TestEventsStream(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), 0)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() snapshotEvent {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read event: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var ev snapshotEvent
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					t.Fatalf("event payload %q: %v", data, err)
				}
				return ev
			}
		}
	}

	first := next()
	if first.Count != 0 {
		t.Fatalf("initial event = %+v", first)
	}

	if rec := do(t, srv.Handler, http.MethodPost, "/api/transactions",
		`{"title":"x","amount":"1","type":"income","date":"2023-10-01"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	ev := next()
	if ev.Count != 1 || ev.Version <= first.Version {
		t.Fatalf("update event = %+v (first %+v)", ev, first)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "9.9.9.9:1", "5.6.7.8"},
		{"remote", nil, "9.9.9.9:1234", "9.9.9.9"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		for k, v := range tt.headers {
			req.Header.Set(k, v)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("%s: clientIP = %q, want %q", tt.name, got, tt.want)
		}
	}
}
