// Package handler exposes the discount engine over HTTP. Routes are
// registered on a net/http ServeMux; request and response bodies are
// encoded with jx.
package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/vinoteca/promo-engine/internal/domain/auth"
	"github.com/vinoteca/promo-engine/internal/domain/discount"
	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// Handler serves the catalog read API and the discount admin API.
type Handler struct {
	products    product.Repository
	discounts   discount.Repository
	engine      *discount.Engine
	lifecycle   *discount.Lifecycle
	authorizer  auth.Authorizer
	evaluations metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	discounts discount.Repository,
	engine *discount.Engine,
	lifecycle *discount.Lifecycle,
	authorizer auth.Authorizer,
	meter metric.Meter,
) (*Handler, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	evaluations, err := meter.Int64Counter("promo_evaluations_total",
		metric.WithDescription("Number of product discount evaluations served"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		products:    products,
		discounts:   discounts,
		engine:      engine,
		lifecycle:   lifecycle,
		authorizer:  authorizer,
		evaluations: evaluations,
	}, nil
}

// Register mounts all API routes on mux. The security middleware guards the
// admin surface; catalog reads are public.
func (h *Handler) Register(mux *http.ServeMux, security *SecurityHandler) {
	mux.HandleFunc("GET /api/catalog", h.ListCatalog)
	mux.HandleFunc("GET /api/product/{id}", h.GetProduct)

	admin := security.Require
	mux.Handle("GET /api/discount", admin(http.HandlerFunc(h.ListDiscounts)))
	mux.Handle("POST /api/discount", admin(http.HandlerFunc(h.CreateDiscount)))
	mux.Handle("GET /api/discount/{id}", admin(http.HandlerFunc(h.GetDiscount)))
	mux.Handle("PUT /api/discount/{id}", admin(http.HandlerFunc(h.UpdateDiscount)))
	mux.Handle("DELETE /api/discount/{id}", admin(http.HandlerFunc(h.DeleteDiscount)))
	mux.Handle("POST /api/discount/{id}/active", admin(http.HandlerFunc(h.SetDiscountActive)))
	mux.Handle("POST /api/discount/{id}/consume", admin(http.HandlerFunc(h.ConsumeDiscount)))
}

// asOf parses the optional as_of query parameter (RFC 3339). A zero time
// means "now" downstream.
func asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
