package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vinoteca/promo-engine/internal/domain/discount"
	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// ListCatalog returns every product annotated with its best applicable
// discount. Stored prices are untouched; the discounted price is a
// listing-time preview.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	at, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of: must be RFC 3339")
		return
	}

	products, err := h.products.List(ctx)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list products"))
		return
	}

	annotations, err := h.engine.AnnotateCatalog(ctx, products, at)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "annotate catalog"))
		return
	}
	h.evaluations.Add(ctx, int64(len(annotations)))

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, a := range annotations {
			encodeAnnotation(e, a)
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single product with its evaluation, or 404.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	at, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of: must be RFC 3339")
		return
	}

	p, err := h.products.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	ev, err := h.engine.Evaluate(ctx, *p, at)
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "evaluate product"))
		return
	}
	h.evaluations.Add(ctx, 1)

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeAnnotation(e, discount.Annotation{Product: *p, Evaluation: ev})
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func encodeAnnotation(e *jx.Encoder, a discount.Annotation) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.Product.ID)
	e.FieldStart("name")
	e.Str(a.Product.Name)
	e.FieldStart("category")
	e.Str(a.Product.Category)
	e.FieldStart("price")
	e.Float64(a.Product.Price.InexactFloat64())
	e.FieldStart("discount")
	if a.Evaluation == nil {
		e.Null()
	} else {
		encodeEvaluation(e, *a.Evaluation)
	}
	e.ObjEnd()
}

func encodeEvaluation(e *jx.Encoder, ev discount.Evaluation) {
	e.ObjStart()
	e.FieldStart("discount_id")
	e.Str(ev.DiscountID)
	e.FieldStart("discount_name")
	e.Str(ev.DiscountName)
	e.FieldStart("discount_type")
	e.Str(string(ev.Type))
	e.FieldStart("discount_value")
	e.Float64(ev.Value.InexactFloat64())
	e.FieldStart("final_price")
	e.Float64(ev.FinalPrice.InexactFloat64())
	e.FieldStart("savings")
	e.Float64(ev.Savings.InexactFloat64())
	e.ObjEnd()
}
