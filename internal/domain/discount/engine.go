package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// Engine is the read-path service: it fetches candidate discounts from the
// repository and runs the resolve-price-select pipeline. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	discounts Repository
	tracer    trace.Tracer
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTracer sets the tracer used for read-path spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the engine's default clock. The clock only supplies the
// fallback instant when callers pass a zero asOf.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine backed by the given discount repository.
func NewEngine(discounts Repository, opts ...EngineOption) *Engine {
	e := &Engine{
		discounts: discounts,
		tracer:    noop.NewTracerProvider().Tracer(""),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the best discount evaluation for p at asOf, or nil when no
// discount applies. A zero asOf means "now". Repeated calls with identical
// inputs return identical results.
func (e *Engine) Evaluate(ctx context.Context, p product.Product, asOf time.Time) (*Evaluation, error) {
	ctx, span := e.tracer.Start(ctx, "discount.Evaluate")
	defer span.End()

	at := e.resolveAsOf(asOf)

	candidates, err := e.discounts.ListActive(ctx, at)
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}

	applicable := FilterApplicable(candidates, p, at)
	return Best(p, applicable), nil
}

// AnnotateCatalog evaluates the whole product listing against the active
// discount set at asOf. A zero asOf means "now".
func (e *Engine) AnnotateCatalog(ctx context.Context, products []product.Product, asOf time.Time) ([]Annotation, error) {
	ctx, span := e.tracer.Start(ctx, "discount.AnnotateCatalog")
	defer span.End()

	at := e.resolveAsOf(asOf)

	discounts, err := e.discounts.ListActive(ctx, at)
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}

	return Annotate(products, discounts, at), nil
}

func (e *Engine) resolveAsOf(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return e.now().UTC()
	}
	return asOf.UTC()
}
