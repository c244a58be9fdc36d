package numeric

import (
	"math"
	"testing"
)

func TestIsUnsafe(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"finite", 1.5, false},
		{"zero", 0.0, false},
		{"nan", nan, true},
		{"+inf", math.Inf(1), true},
		{"-inf", math.Inf(-1), true},
		{"float32 nan", float32(nan), true},
		{"int", 42, false},
		{"string", "1.5", true},
		{"nil", nil, true},
		{"nil pointer", (*float64)(nil), true},
		{"pointer to nan", &nan, true},
	}
	for _, c := range cases {
		if got := IsUnsafe(c.in); got != c.want {
			t.Errorf("%s: IsUnsafe=%v, want %v", c.name, got, c.want)
		}
	}
}

func TestFloat_NullsUnsafeValues(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if p := Float(v); p != nil {
			t.Errorf("Float(%v) = %v, want nil", v, *p)
		}
	}
	p := Float(3.25)
	if p == nil || *p != 3.25 {
		t.Fatalf("Float(3.25) = %v", p)
	}
}

func TestReady(t *testing.T) {
	if Ready(10, false) != nil {
		t.Error("expected nil for a not-ready accumulator")
	}
	if Ready(math.NaN(), true) != nil {
		t.Error("expected nil for NaN")
	}
	if p := Ready(10, true); p == nil || *p != 10 {
		t.Errorf("expected 10, got %v", p)
	}
}

func TestDiv(t *testing.T) {
	if _, ok := Div(1, 0); ok {
		t.Error("division by zero must not be ok")
	}
	if q, ok := Div(6, 3); !ok || q != 2 {
		t.Errorf("Div(6,3) = %v,%v", q, ok)
	}
	if _, ok := Div(math.Inf(1), 1); ok {
		t.Error("infinite quotient must not be ok")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil, 2); got != NA {
		t.Errorf("Format(nil) = %q", got)
	}
	v := 1.23456
	if got := Format(&v, 2); got != "1.23" {
		t.Errorf("Format = %q", got)
	}
	if got := Format(&v, -1); got != "1.23456" {
		t.Errorf("Format shortest = %q", got)
	}
	inf := math.Inf(-1)
	if got := Format(&inf, 2); got != NA {
		t.Errorf("Format(-Inf) = %q", got)
	}
}
