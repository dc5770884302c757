package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type addItemBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBodyReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"nope","quantity":0}`))
	var body addItemBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["product_id"] != "must be a valid uuid" {
		t.Fatalf("unexpected product_id detail %q", details["product_id"])
	}
	if details["quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected quantity detail %q", details["quantity"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndBadJSON(t *testing.T) {
	for _, raw := range []string{`{"product_id":"x","extra":1}`, `{`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body addItemBody
		if err := DecodeJSONBody(req, &body); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%q: expected validation error, got %v", raw, err)
		}
	}
}

func TestDecodeJSONBodyRejectsTrailingAndOversizedBodies(t *testing.T) {
	id := uuid.New().String()
	trailing := `{"product_id":"` + id + `","quantity":1} {"quantity":2}`
	oversized := `{"product_id":"` + id + `","quantity":1,"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	for name, raw := range map[string]string{"trailing": trailing, "oversized": oversized} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body addItemBody
		err := DecodeJSONBody(req, &body)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", nil), &addItemBody{}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("nil body: expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"`+id.String()+`","quantity":2}`))
	var body addItemBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Quantity != 2 || body.ProductID != id.String() {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500&bad=x", nil)
	if v, err := ParseQueryInt(req, "page", 1, 1, 1000); err != nil || v != 3 {
		t.Fatalf("page: got %d, %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 7, 1, 10); err != nil || v != 7 {
		t.Fatalf("default: got %d, %v", v, err)
	}
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := ParseQueryInt(req, "bad", 1, 1, 10); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected numeric error, got %v", err)
	}
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=4&limit=50", nil)
	params, err := ParsePage(req)
	if err != nil || params.Page != 4 || params.Limit != 50 {
		t.Fatalf("got %+v, %v", params, err)
	}
	params, err = ParsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || params.Page != 1 || params.Limit != 10 {
		t.Fatalf("defaults: got %+v, %v", params, err)
	}
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?page=0", nil)); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected page validation error, got %v", err)
	}
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807", nil)); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected oversized page to be rejected, got %v", err)
	}
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	rctx.URLParams.Add("bad", "123")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseURLUUID(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("got %s, %v", got, err)
	}
	if _, err := ParseURLUUID(req, "bad"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryEnum(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=shipped&other=zzz", nil)
	valid := func(v string) bool { return v == "shipped" }
	got, err := ParseQueryEnum(req, "status", valid)
	if err != nil || got == nil || *got != "shipped" {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err := ParseQueryEnum(req, "none", valid); err != nil || got != nil {
		t.Fatalf("absent value should be nil, got %v, %v", got, err)
	}
	if _, err := ParseQueryEnum(req, "other", valid); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  héllo wörld ", 5); got != "héllo" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" x ", 0); got != "x" {
		t.Fatalf("unexpected %q", got)
	}
}
