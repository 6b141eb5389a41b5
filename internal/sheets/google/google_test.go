package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"flowfinance/internal/log"
	ports "flowfinance/internal/sheets"
)

type recordedCall struct {
	method string
	path   string
	body   map[string]any
}

func fakeSheets(t *testing.T) (*httptest.Server, *[]recordedCall, *sync.Mutex) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recordedCall{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &mu
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, log.Discard())
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = New(context.Background(), Config{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReplaceClearsThenWrites(t *testing.T) {
	srv, calls, mu := fakeSheets(t)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1", SheetName: "Mirror"}, log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rows := []ports.Row{
		{Date: "2024-01-02", Type: "expense", Amount: "25.50", Account: "Checking", Category: "Food"},
		{Date: "2024-01-03", Type: "revenue", Amount: "100.00", Account: "No Account", Category: "No Category"},
	}
	if err := c.Replace(context.Background(), rows); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*calls) != 2 {
		t.Fatalf("expected clear and update, got %d calls", len(*calls))
	}
	clearCall, update := (*calls)[0], (*calls)[1]
	if clearCall.method != http.MethodPost || !strings.HasSuffix(clearCall.path, ":clear") || !strings.Contains(clearCall.path, "sheet-1") {
		t.Errorf("unexpected clear call %s %s", clearCall.method, clearCall.path)
	}
	if update.method != http.MethodPut || !strings.Contains(update.path, "Mirror!A1") {
		t.Errorf("unexpected update call %s %s", update.method, update.path)
	}
	values, ok := update.body["values"].([]any)
	if !ok || len(values) != 3 {
		t.Fatalf("expected header plus 2 rows, got %v", update.body["values"])
	}
	header := values[0].([]any)
	if header[0] != "Date" || header[len(header)-1] != "Category" {
		t.Errorf("unexpected header %v", header)
	}
	first := values[1].([]any)
	if first[2] != "25.50" || first[5] != "Checking" {
		t.Errorf("unexpected first row %v", first)
	}
}
