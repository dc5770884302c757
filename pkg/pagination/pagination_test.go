package pagination

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   Params
		want Params
	}{
		{in: Params{}, want: Params{Page: 1, Limit: DefaultLimit}},
		{in: Params{Page: -3, Limit: 500}, want: Params{Page: 1, Limit: MaxLimit}},
		{in: Params{Page: 4, Limit: 20}, want: Params{Page: 4, Limit: 20}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
	huge := Params{Page: math.MaxInt, Limit: MaxLimit}
	if got := huge.Offset(); got < 0 || got > math.MaxInt32 {
		t.Fatalf("offset overflowed: %d", got)
	}
	if got := huge.Normalize().Page; got != MaxPage {
		t.Fatalf("expected page capped at %d, got %d", MaxPage, got)
	}
}

func TestMeta(t *testing.T) {
	meta := Params{Page: 2, Limit: 10}.Meta(21)
	if meta.Pages != 3 || meta.Total != 21 || meta.Page != 2 || meta.Limit != 10 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if empty := (Params{}).Meta(0); empty.Pages != 0 {
		t.Fatalf("expected zero pages for empty result, got %+v", empty)
	}
	if exact := (Params{Limit: 5}).Meta(10); exact.Pages != 2 {
		t.Fatalf("expected 2 pages, got %+v", exact)
	}
}
