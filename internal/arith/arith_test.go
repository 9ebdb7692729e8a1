package arith_test

import (
	"math"
	"testing"

	"github.com/sarn-lang/sarn/internal/arith"
)

func TestIntOverflowWrapsTwosComplement(t *testing.T) {
	if got := arith.AddInt(math.MaxInt64, 1); got != math.MinInt64 {
		t.Errorf("MaxInt64 + 1 = %d, want wrap to MinInt64", got)
	}
	if got := arith.MulInt(math.MaxInt64, 2); got != -2 {
		t.Errorf("MaxInt64 * 2 = %d, want -2", got)
	}
	if got := arith.SubInt(math.MinInt64, 1); got != math.MaxInt64 {
		t.Errorf("MinInt64 - 1 = %d, want wrap to MaxInt64", got)
	}
}

func TestDivModByZero(t *testing.T) {
	if _, err := arith.DivInt(1, 0); err == nil {
		t.Error("Int division by zero must error")
	}
	if _, err := arith.ModInt(1, 0); err == nil {
		t.Error("Int modulo by zero must error")
	}
	if _, err := arith.DivFloat(1, 0); err == nil {
		t.Error("Float division by zero must error, not produce Inf")
	}
}

func TestIntDivisionTruncatesTowardZero(t *testing.T) {
	got, err := arith.DivInt(-7, 2)
	if err != nil || got != -3 {
		t.Errorf("-7 / 2 = %d, want -3", got)
	}
	rem, err := arith.ModInt(-7, 2)
	if err != nil || rem != -1 {
		t.Errorf("-7 %% 2 = %d, want -1", rem)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		1.5:  "1.5",
		2:    "2.0",
		0.25: "0.25",
		-3:   "-3.0",
	}
	for in, want := range cases {
		if got := arith.FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSliceBounds(t *testing.T) {
	start, end, err := arith.SliceBounds(1, 3, true, true, false, 4)
	if err != nil || start != 1 || end != 3 {
		t.Errorf("[1..3) over len 4: got (%d, %d, %v)", start, end, err)
	}

	// Inclusive end widens by one.
	_, end, err = arith.SliceBounds(1, 3, true, true, true, 4)
	if err != nil || end != 4 {
		t.Errorf("[1...3] over len 4: end = %d, want 4", end)
	}

	// Open endpoints.
	start, end, err = arith.SliceBounds(0, 0, false, false, false, 4)
	if err != nil || start != 0 || end != 4 {
		t.Errorf("[..]: got (%d, %d, %v)", start, end, err)
	}

	// The empty slice of an empty sequence is fine.
	if _, _, err = arith.SliceBounds(0, 0, true, true, false, 0); err != nil {
		t.Errorf("[0..0) over len 0 must succeed: %v", err)
	}

	// Negative start, inverted bounds, and overlong end all fault.
	if _, _, err = arith.SliceBounds(-1, 2, true, true, false, 4); err == nil {
		t.Error("negative start must fail")
	}
	if _, _, err = arith.SliceBounds(3, 1, true, true, false, 4); err == nil {
		t.Error("start > end must fail")
	}
	if _, _, err = arith.SliceBounds(0, 5, true, true, false, 4); err == nil {
		t.Error("end > len must fail")
	}
}

func TestCheckIndexRejectsNegative(t *testing.T) {
	if err := arith.CheckIndex(-1, 4); err == nil {
		t.Error("negative index must be an error, not wraparound")
	}
	if err := arith.CheckIndex(4, 4); err == nil {
		t.Error("index == len must be out of bounds")
	}
	if err := arith.CheckIndex(3, 4); err != nil {
		t.Errorf("index 3 of 4: %v", err)
	}
}

func TestRangeLength(t *testing.T) {
	if got := arith.RangeLength(1, 5, false); got != 4 {
		t.Errorf("1..5 has %d elements, want 4", got)
	}
	if got := arith.RangeLength(1, 5, true); got != 5 {
		t.Errorf("1...5 has %d elements, want 5", got)
	}
	if got := arith.RangeLength(5, 1, false); got != 0 {
		t.Errorf("an inverted range is empty, got %d", got)
	}
}
