package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/vinoteca/promo-engine/internal/domain/discount"
)

// ListDiscounts returns every discount record, newest first.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	if !h.authorizer.IsAdmin(r.Context()) {
		writeError(w, r, http.StatusForbidden, "admin scope required")
		return
	}

	discounts, err := h.discounts.List(r.Context())
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list discounts"))
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range discounts {
			encodeDiscount(e, &discounts[i])
		}
		e.ArrEnd()
	})
}

// GetDiscount returns a single discount record.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	if !h.authorizer.IsAdmin(r.Context()) {
		writeError(w, r, http.StatusForbidden, "admin scope required")
		return
	}

	d, err := h.discounts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDiscountError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeDiscount(e, d)
	})
}

// CreateDiscount validates and persists a new discount.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	d, err := h.lifecycle.Create(r.Context(), fields)
	if err != nil {
		h.writeDiscountError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		encodeDiscount(e, d)
	})
}

// UpdateDiscount validates and overwrites an existing discount.
func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	d, err := h.lifecycle.Update(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		h.writeDiscountError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeDiscount(e, d)
	})
}

// DeleteDiscount removes a discount by id.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeDiscountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDiscountActive toggles the active flag without touching anything else.
func (h *Handler) SetDiscountActive(w http.ResponseWriter, r *http.Request) {
	active, err := decodeActive(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.lifecycle.SetActive(r.Context(), r.PathValue("id"), active); err != nil {
		h.writeDiscountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConsumeDiscount records one use of the discount, bounded by its usage
// limit. The host application decides which checkout event triggers this;
// evaluation never consumes usage on its own.
func (h *Handler) ConsumeDiscount(w http.ResponseWriter, r *http.Request) {
	if !h.authorizer.IsAdmin(r.Context()) {
		writeError(w, r, http.StatusForbidden, "admin scope required")
		return
	}

	if err := h.discounts.Consume(r.Context(), r.PathValue("id")); err != nil {
		h.writeDiscountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDiscountError maps domain errors to HTTP responses. Validation
// failures identify the offending field; authorization failures stay distinct
// from them.
func (h *Handler) writeDiscountError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *discount.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, http.StatusUnprocessableEntity, vErr.Error())
	case errors.Is(err, discount.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "admin scope required")
	case errors.Is(err, discount.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "discount not found")
	case errors.Is(err, discount.ErrUsageLimitReached):
		writeError(w, r, http.StatusConflict, "discount usage limit reached")
	default:
		h.internalError(w, r, err)
	}
}

func decodeFields(body io.Reader) (discount.Fields, error) {
	var f discount.Fields

	raw, err := io.ReadAll(body)
	if err != nil {
		return f, err
	}

	d := jx.DecodeBytes(raw)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			f.Name, err = d.Str()
		case "description":
			f.Description, err = d.Str()
		case "discount_type":
			var s string
			s, err = d.Str()
			f.Type = discount.Type(s)
		case "discount_value":
			f.Value, err = decodeDecimal(d)
		case "min_purchase_amount":
			f.MinPurchaseAmount, err = decodeDecimal(d)
		case "max_discount_amount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			f.MaxDiscountAmount = &v
		case "start_date":
			f.StartDate, err = decodeTime(d)
		case "end_date":
			f.EndDate, err = decodeTime(d)
		case "is_active":
			f.Active, err = d.Bool()
		case "usage_limit":
			if d.Next() == jx.Null {
				return d.Null()
			}
			f.UsageLimit, err = d.Int()
		case "applies_to":
			var s string
			s, err = d.Str()
			f.AppliesTo = discount.AppliesTo(s)
		case "target_value":
			f.TargetValue, err = d.Str()
		case "days_of_week":
			err = d.Arr(func(d *jx.Decoder) error {
				day, err := d.Int()
				if err != nil {
					return err
				}
				f.DaysOfWeek = append(f.DaysOfWeek, day)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return f, err
}

func decodeActive(body io.Reader) (bool, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return false, err
	}

	var active bool
	d := jx.DecodeBytes(raw)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "is_active" {
			return d.Skip()
		}
		var err error
		active, err = d.Bool()
		return err
	})
	return active, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	f, err := d.Float64()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(f), nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("name")
	e.Str(d.Name)
	e.FieldStart("description")
	e.Str(d.Description)
	e.FieldStart("discount_type")
	e.Str(string(d.Type))
	e.FieldStart("discount_value")
	e.Float64(d.Value.InexactFloat64())
	e.FieldStart("min_purchase_amount")
	e.Float64(d.MinPurchaseAmount.InexactFloat64())
	e.FieldStart("max_discount_amount")
	if d.MaxDiscountAmount == nil {
		e.Null()
	} else {
		e.Float64(d.MaxDiscountAmount.InexactFloat64())
	}
	e.FieldStart("start_date")
	e.Str(d.StartDate.UTC().Format(time.RFC3339))
	e.FieldStart("end_date")
	e.Str(d.EndDate.UTC().Format(time.RFC3339))
	e.FieldStart("is_active")
	e.Bool(d.Active)
	e.FieldStart("usage_limit")
	if d.UsageLimit <= 0 {
		e.Null()
	} else {
		e.Int(d.UsageLimit)
	}
	e.FieldStart("used_count")
	e.Int(d.UsedCount)
	e.FieldStart("applies_to")
	e.Str(string(d.Scope.Kind()))
	e.FieldStart("target_value")
	e.Str(d.Scope.TargetValue())
	e.FieldStart("days_of_week")
	e.ArrStart()
	for _, day := range d.DaysOfWeek.Days() {
		e.Int(day)
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(d.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
