// HTMX response construction: HX-Trigger headers plus small HTML fragments
// for the result slots under the forms.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Response builds an HTMX-aware reply: optional triggers, a status code, and
// an HTML fragment body.
type Response struct {
	triggers   map[string]any
	statusCode int
	headers    map[string]string
	body       []byte
}

func NewResponse() *Response {
	return &Response{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *Response) Status(code int) *Response {
	b.statusCode = code
	return b
}

// TriggerStatementChanged tells the page the authoritative collection moved;
// the client reacts with a full reload, which refetches everything.
func (b *Response) TriggerStatementChanged() *Response {
	b.triggers["statement:changed"] = struct{}{}
	return b
}

func (b *Response) Header(name, value string) *Response {
	b.headers[name] = value
	return b
}

// BodyHTML sets a prebuilt fragment. Callers escape interpolated content.
func (b *Response) BodyHTML(html string) *Response {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

func (b *Response) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if payload, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(payload))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorFragment renders an escaped error fragment with the given status.
func errorFragment(status int, message string) *Response {
	return NewResponse().
		Status(status).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// successFragment renders an escaped success fragment.
func successFragment(message string) *Response {
	return NewResponse().
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(message) + `</div>`)
}
