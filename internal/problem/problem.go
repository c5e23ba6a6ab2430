// Package problem renders RFC-7807-style error bodies and the
// {data, meta?} success envelope described by the HTTP surface.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/vaultline/wallet-core/internal/apperr"
)

// Problem is the application/problem+json error body.
type Problem struct {
	Type    string      `json:"type"`
	Title   string      `json:"title"`
	Status  int         `json:"status"`
	Detail  string      `json:"detail,omitempty"`
	Code    apperr.Code `json:"code,omitempty"`
	TraceID string      `json:"traceId,omitempty"`
}

// Envelope wraps successful JSON bodies.
type Envelope struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

// ListMeta is promoted onto Envelope.Meta for paginated list endpoints.
type ListMeta struct {
	NextCursor string `json:"nextCursor,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

const typeBase = "about:blank"

// WriteError writes err as an application/problem+json response.
// Non-*apperr.Error values are treated as INTERNAL.
func WriteError(w http.ResponseWriter, traceID string, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal("unexpected error", err)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(ae.Status())

	_ = json.NewEncoder(w).Encode(Problem{
		Type:    typeBase,
		Title:   string(ae.Code),
		Status:  ae.Status(),
		Detail:  ae.Message,
		Code:    ae.Code,
		TraceID: traceID,
	})
}

// WriteData writes data wrapped in the {data} envelope.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Data: data})
}

// WriteList writes items wrapped in {data: items, meta: {nextCursor?, limit?}}.
func WriteList(w http.ResponseWriter, status int, items interface{}, nextCursor string, limit int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Data: items,
		Meta: ListMeta{NextCursor: nextCursor, Limit: limit},
	})
}

// WriteCreated writes data with a 201 status and Location header.
func WriteCreated(w http.ResponseWriter, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteData(w, http.StatusCreated, data)
}
