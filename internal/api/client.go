// Package api implements the client for the external expense backend, the
// only collaborator that owns data: it parses uploaded PDF statements and
// persists transactions. This process never stores anything itself.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"pengo/internal/core"
)

const (
	expensesPath = "/api/expenses"
	uploadPath   = "/api/upload"
)

// Client talks to the expense backend. All methods honor the context and the
// configured timeout; there are no retries, a failed call surfaces to the user
// as a single error message.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the backend at baseURL. A zero timeout falls back
// to 15 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches the full transaction collection. Records are decoded
// tolerantly; see wire.go.
func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+expensesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch expenses: backend returned %s", resp.Status)
	}

	var wire []wireTransaction
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	txs := make([]core.Transaction, 0, len(wire))
	for _, w := range wire {
		txs = append(txs, w.toTransaction())
	}
	return txs, nil
}

// Create submits a manual entry. The amount is already signed by the form
// model; it goes on the wire as a plain decimal string, which is what the
// backend stores.
func (c *Client) Create(ctx context.Context, sub core.Submission) error {
	payload := map[string]string{
		"date":        sub.Date,
		"category":    sub.Category,
		"description": sub.Description,
		"amount":      sub.Amount.Decimal(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+expensesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("create transaction: backend returned %s", resp.Status)
	}
	return nil
}

// Upload forwards a PDF statement as multipart field "file" and returns the
// backend's response body verbatim; the UI shows it to the user as the
// success message.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload statement: %w", err)
	}
	defer resp.Body.Close()
	msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload statement: backend returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return strings.TrimSpace(string(msg)), nil
}
