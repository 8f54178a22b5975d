package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"pengo/internal/core"
)

type fakeBackend struct {
	mu        sync.Mutex
	txs       []core.Transaction
	listErr   error
	listCalls int
	created   []core.Submission
	createErr error
	uploadMsg string
	uploaded  []string
	uploadErr error
}

func (f *fakeBackend) List(ctx context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.txs, nil
}

func (f *fakeBackend) Create(ctx context.Context, sub core.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, sub)
	return nil
}

func (f *fakeBackend) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, filename)
	return f.uploadMsg, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeBackend) submissions() []core.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Submission(nil), f.created...)
}

func tx(date, category, description string, cents int64) core.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return core.Transaction{
		Date:        d,
		RawDate:     date,
		Category:    category,
		Description: description,
		Amount:      core.Money{Cents: cents},
	}
}

func newTestServer(t *testing.T, backend Backend) *Server {
	t.Helper()
	srv := NewServer(":0", backend, Options{CacheTTL: time.Minute})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestIndexAndHealth(t *testing.T) {
	backend := &fakeBackend{txs: []core.Transaction{
		tx("2024-03-15", "Expense", "Grocery store", -25000),
		tx("2024-03-01", "Income", "Salary", 500000),
	}}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Expense Tracker") {
		t.Fatalf("index body missing heading")
	}
	if !strings.Contains(body, "Grocery store") || !strings.Contains(body, "Salary") {
		t.Fatalf("index body missing transactions: %s", body)
	}
	if !strings.Contains(body, "March 2024") {
		t.Fatalf("index body missing month header")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestIndexRendersErrorWhenBackendDown(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("connection refused")}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Could not reach the expense backend") {
		t.Fatalf("index body missing error banner: %s", rr.Body.String())
	}

	// Not ready while the backend is unreachable.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestStatementPartialScope(t *testing.T) {
	backend := &fakeBackend{txs: []core.Transaction{
		tx("2024-03-15", "Expense", "Grocery store", -25000),
		tx("2024-04-02", "Expense", "Train ticket", -4500),
	}}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/transactions?month=2024-03", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("partial status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Grocery store") {
		t.Fatalf("selected month row missing: %s", body)
	}
	if strings.Contains(body, "Train ticket") {
		t.Fatalf("other month leaked into selection: %s", body)
	}

	// A month with no data renders the placeholder, not an error.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ui/transactions?month=1999-01", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("empty month status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No transactions for this period.") {
		t.Fatalf("placeholder missing: %s", rr.Body.String())
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	backend := &fakeBackend{}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	cases := []url.Values{
		{"date": {""}, "category": {"Expense"}, "description": {"x"}, "amount": {"10"}},
		{"date": {"2024-03-15"}, "category": {"Expense"}, "description": {""}, "amount": {"10"}},
		{"date": {"2024-03-15"}, "category": {"Expense"}, "description": {"x"}, "amount": {"abc"}},
	}
	for _, form := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("form %v: expected 422, got %d", form, rr.Code)
		}
	}
	if len(backend.submissions()) != 0 {
		t.Fatalf("invalid forms must not reach the backend, got %d calls", len(backend.submissions()))
	}
}

func TestCreateTransactionSuccess(t *testing.T) {
	backend := &fakeBackend{}
	srv := newTestServer(t, backend)

	// Warm the statement cache so invalidation is observable.
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	before := backend.calls()

	form := url.Values{
		"date":        {"2024-03-15"},
		"category":    {"Expense"},
		"description": {"Coffee"},
		"amount":      {"250"},
	}
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "statement:changed") {
		t.Fatalf("missing statement:changed trigger, got %q", rr.Header().Get("HX-Trigger"))
	}

	subs := backend.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	if subs[0].Amount.Cents != -25000 {
		t.Fatalf("expense amount not negated: %d", subs[0].Amount.Cents)
	}

	// The next page view must refetch, not serve the stale snapshot.
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if backend.calls() != before+1 {
		t.Fatalf("expected cache invalidation to force a refetch, calls=%d", backend.calls())
	}
}

func TestCreateTransactionBackendFailure(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("boom")}
	srv := newTestServer(t, backend)

	form := url.Values{
		"date":        {"2024-03-15"},
		"category":    {"Income"},
		"description": {"Refund"},
		"amount":      {"12.50"},
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Fatalf("failed create must not trigger a reload")
	}
}

func multipartPDF(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	backend := &fakeBackend{uploadMsg: "Uploaded and processed 12 transactions."}
	srv := newTestServer(t, backend)

	// Wrong method
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/upload", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Missing file
	body, contentType := multipartPDF(t, "other", "statement.pdf", "%PDF-1.4 data")
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", rr.Code)
	}

	// Non-PDF rejected before the backend sees it
	body, contentType = multipartPDF(t, "file", "statement.csv", "a,b,c")
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("non-pdf: expected 400, got %d", rr.Code)
	}
	if len(backend.uploaded) != 0 {
		t.Fatalf("rejected upload reached the backend")
	}

	// Success shows the backend's message and triggers a reload
	body, contentType = multipartPDF(t, "file", "statement.pdf", "%PDF-1.4 data")
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Uploaded and processed 12 transactions.") {
		t.Fatalf("backend message missing: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "statement:changed") {
		t.Fatalf("missing statement:changed trigger")
	}
	if len(backend.uploaded) != 1 || backend.uploaded[0] != "statement.pdf" {
		t.Fatalf("unexpected uploads: %v", backend.uploaded)
	}
}

func TestUploadBackendFailureShowsError(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("parse failed")}
	srv := newTestServer(t, backend)

	body, contentType := multipartPDF(t, "file", "statement.pdf", "%PDF-1.4 data")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Upload failed") {
		t.Fatalf("error fragment missing: %s", rr.Body.String())
	}
}

func TestPostRateLimit(t *testing.T) {
	backend := &fakeBackend{}
	srv := newTestServer(t, backend)

	limited := false
	for i := 0; i < rateLimitPerMinute+5; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("date=&category=&description=&amount="))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			if rr.Header().Get("Retry-After") == "" {
				t.Fatalf("429 without Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Fatalf("rate limiter never kicked in after %d requests", rateLimitPerMinute+5)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	backend := &fakeBackend{txs: []core.Transaction{tx("2024-03-15", "Expense", "x", -100)}}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"http_requests_total",
		"statement_views_total 1",
		"statement_cache_misses_total 1",
		"uptime_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("metrics output missing %q:\n%s", metric, body)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	backend := &fakeBackend{}
	srv := newTestServer(t, backend)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options=%q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "unpkg.com") {
		t.Fatalf("CSP missing script host: %q", rr.Header().Get("Content-Security-Policy"))
	}
}
