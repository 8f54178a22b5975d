package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengo/internal/core"
)

func TestListDecodesMixedTypes(t *testing.T) {
	body := `[
		{"id": 1, "date": "2024-03-05", "category": "Expense", "amount": "-500", "description": "coffee"},
		{"id": "abc", "date": "Mar 20, 2024", "category": "Income", "amount": 2000, "description": "salary"},
		{"id": 3, "date": "not a date", "category": "Expense", "amount": "oops", "description": "broken"}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/expenses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	txs, err := New(srv.URL, time.Second).List(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, "1", txs[0].ID)
	assert.Equal(t, int64(-50000), txs[0].Amount.Cents)
	assert.Equal(t, core.MonthKey("2024-03"), txs[0].Key())

	assert.Equal(t, "abc", txs[1].ID)
	assert.Equal(t, int64(200000), txs[1].Amount.Cents)
	assert.Equal(t, core.MonthKey("2024-03"), txs[1].Key())

	// Malformed record is flagged, not dropped: zero date, raw string kept,
	// amount zero (classified as expense).
	assert.True(t, txs[2].Date.IsZero())
	assert.Equal(t, "not a date", txs[2].RawDate)
	assert.Equal(t, core.MonthKeyUnknown, txs[2].Key())
	assert.Zero(t, txs[2].Amount.Cents)
}

func TestListBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCreateSendsSignedDecimal(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/expenses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := core.Submission{
		Date:        "2024-06-01",
		Category:    core.CategoryExpense,
		Description: "groceries",
		Amount:      core.Money{Cents: -25000},
	}
	require.NoError(t, New(srv.URL, time.Second).Create(context.Background(), sub))
	assert.Equal(t, "-250", got["amount"])
	assert.Equal(t, "Expense", got["category"])
	assert.Equal(t, "2024-06-01", got["date"])
	assert.Equal(t, "groceries", got["description"])
}

func TestUploadForwardsFileAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "statement.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4 fake", string(data))
		_, _ = io.WriteString(w, "Uploaded and processed 12 transactions.")
	}))
	defer srv.Close()

	msg, err := New(srv.URL, time.Second).Upload(context.Background(), "statement.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "Uploaded and processed 12 transactions.", msg)
}

func TestUploadBackendErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Failed to parse PDF file", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Upload(context.Background(), "x.pdf", strings.NewReader("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse PDF file")
}
