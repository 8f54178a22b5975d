package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"pengo/internal/core"
	"pengo/internal/events"
)

// indexData is the full-page payload: the statement block plus form defaults.
type indexData struct {
	Today     string // default for the manual-entry date input
	View      StatementView
	LoadError string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{Today: time.Now().Format("2006-01-02")}
	st, err := s.loader.Load(r.Context())
	if err != nil {
		// The page still renders; the statement block shows the failure.
		s.logger.ErrorContext(r.Context(), "Statement load failed", "error", err)
		data.LoadError = "Could not reach the expense backend. Please try again."
	} else {
		data.View = buildStatementView(st, r.URL.Query().Get("month"))
		s.countStatement()
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleStatementPartial re-renders the filter + totals + table block when
// the month selection changes, without a full page load.
func (s *Server) handleStatementPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	st, err := s.loader.Load(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Statement load failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Could not reach the expense backend. Please try again.</div>`))
		return
	}
	s.countStatement()

	view := buildStatementView(st, r.URL.Query().Get("month"))
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="error">templates not loaded</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "statement.html", view); err != nil {
		s.logger.ErrorContext(r.Context(), "Statement template execution failed", "error", err, "template", "statement.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering statement</div>`))
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err, "path", r.URL.Path)
		errorFragment(http.StatusBadRequest, "Invalid request format").Write(w)
		return
	}

	pending := core.PendingEntry{
		Date:        r.Form.Get("date"),
		Category:    r.Form.Get("category"),
		Description: sanitizeInput(r.Form.Get("description")),
		RawAmount:   r.Form.Get("amount"),
	}
	sub, err := core.BuildSubmission(pending)
	if err != nil {
		// Validation failures never reach the backend.
		errorFragment(http.StatusUnprocessableEntity, "Please fill out all fields before adding: "+err.Error()).Write(w)
		return
	}

	if err := s.backend.Create(r.Context(), sub); err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction create failed",
			"error", err,
			"category", sub.Category,
			"amount", sub.Amount.Decimal())
		errorFragment(http.StatusBadGateway, "Saving failed. Please try again.").Write(w)
		return
	}

	s.countEntry()
	s.loader.Invalidate()
	s.publish(r.Context(), events.NewTransactionCreated(sub.Category, sub.Description, sub.Amount.Decimal()))
	s.logger.InfoContext(r.Context(), "Transaction added",
		"category", sub.Category,
		"amount", sub.Amount.Decimal())

	successFragment("Transaction added successfully!").
		TriggerStatementChanged().
		Write(w)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.logger.WarnContext(r.Context(), "Multipart parse failed or file too large", "error", err, "limit", s.maxUploadBytes)
		errorFragment(http.StatusBadRequest, fmt.Sprintf("Upload failed: file too large or malformed (max %d MB)", s.maxUploadBytes/(1<<20))).Write(w)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errorFragment(http.StatusBadRequest, "Please select a PDF file to upload.").Write(w)
		return
	}
	defer file.Close()

	if header.Size == 0 {
		errorFragment(http.StatusBadRequest, "Please select a PDF file to upload.").Write(w)
		return
	}
	if !looksLikePDF(header.Filename, header.Header.Get("Content-Type")) {
		errorFragment(http.StatusBadRequest, "Only PDF statements are supported.").Write(w)
		return
	}

	msg, err := s.backend.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Statement upload failed", "error", err, "filename", header.Filename)
		errorFragment(http.StatusBadGateway, "Upload failed. Please try again.").Write(w)
		return
	}

	s.countUpload()
	s.loader.Invalidate()
	s.publish(r.Context(), events.NewStatementUploaded(header.Filename))
	s.logger.InfoContext(r.Context(), "Statement uploaded", "filename", header.Filename, "size", header.Size)

	// The backend's response body is the user-facing success message.
	successFragment(msg).
		TriggerStatementChanged().
		Write(w)
}

func (s *Server) publish(ctx context.Context, msg *events.Message) {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		// Notifications are best-effort; the mutation already succeeded.
		s.logger.WarnContext(ctx, "Event publish failed", "error", err, "type", msg.Type)
	}
}

func looksLikePDF(filename, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady verifies templates and reachability of the expense backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.loader.Load(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in a Prometheus-like plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceStats := s.traceMW.Snapshot()
	hits, misses := s.loader.CacheStats()
	uptime := time.Since(s.metrics.started)

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceStats.TotalRequests)

	fmt.Fprintf(w, "# HELP statement_views_total Statement views served\n")
	fmt.Fprintf(w, "# TYPE statement_views_total counter\n")
	fmt.Fprintf(w, "statement_views_total %d\n\n", atomic.LoadInt64(&s.metrics.statements))

	fmt.Fprintf(w, "# HELP transactions_created_total Manual entries forwarded to the backend\n")
	fmt.Fprintf(w, "# TYPE transactions_created_total counter\n")
	fmt.Fprintf(w, "transactions_created_total %d\n\n", atomic.LoadInt64(&s.metrics.transactions))

	fmt.Fprintf(w, "# HELP statement_uploads_total PDF statements forwarded to the backend\n")
	fmt.Fprintf(w, "# TYPE statement_uploads_total counter\n")
	fmt.Fprintf(w, "statement_uploads_total %d\n\n", atomic.LoadInt64(&s.metrics.uploads))

	fmt.Fprintf(w, "# HELP statement_cache_hits_total Statement cache hits\n")
	fmt.Fprintf(w, "# TYPE statement_cache_hits_total counter\n")
	fmt.Fprintf(w, "statement_cache_hits_total %d\n\n", hits)

	fmt.Fprintf(w, "# HELP statement_cache_misses_total Statement cache misses\n")
	fmt.Fprintf(w, "# TYPE statement_cache_misses_total counter\n")
	fmt.Fprintf(w, "statement_cache_misses_total %d\n\n", misses)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", s.rateLimiter.hits())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.activeClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
