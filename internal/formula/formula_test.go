package formula

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestValue(t *testing.T) {
	t.Run("linear_defaults", func(t *testing.T) {
		cfg := Config{Type: TypeLinear}
		for _, index := range []int{0, 1, 7, 100} {
			if got := Value(cfg, index); got != index {
				t.Errorf("linear defaults at index %d: expected %d, got %d", index, index, got)
			}
		}
	})

	t.Run("linear_with_params", func(t *testing.T) {
		cfg := Config{Type: TypeLinear, Params: Params{Multiplier: fp(5), Offset: fp(2)}}
		if got := Value(cfg, 3); got != 17 {
			t.Errorf("expected 17, got %d", got)
		}
	})

	t.Run("exponential_slow_base", func(t *testing.T) {
		cfg := Config{Type: TypeExponential, Params: Params{Base: fp(1.15)}}
		expected := []int{1, 1, 1, 1, 1, 2}
		for index, want := range expected {
			if got := Value(cfg, index); got != want {
				t.Errorf("exponential base 1.15 at index %d: expected %d, got %d", index, want, got)
			}
		}
	})

	t.Run("exponential_default_base", func(t *testing.T) {
		cfg := Config{Type: TypeExponential}
		if got := Value(cfg, 10); got != 1024 {
			t.Errorf("expected 1024, got %d", got)
		}
	})

	t.Run("exponential_saturates_past_int_range", func(t *testing.T) {
		cfg := Config{Type: TypeExponential, Params: Params{Base: fp(1.15)}}
		// 1.15^320 is finite but exceeds MaxInt; 1.15^6000 overflows
		// float64 entirely. Both must saturate instead of wrapping negative.
		if got := Value(cfg, 320); got != math.MaxInt {
			t.Errorf("expected saturation at index 320, got %d", got)
		}
		if got := Value(cfg, 6000); got != math.MaxInt {
			t.Errorf("expected saturation at index 6000, got %d", got)
		}
		if Value(cfg, 310) > Value(cfg, 320) {
			t.Error("saturation must keep the curve non-decreasing")
		}
	})

	t.Run("sqrt", func(t *testing.T) {
		cfg := Config{Type: TypeSqrt, Params: Params{Multiplier: fp(10)}}
		if got := Value(cfg, 4); got != 20 {
			t.Errorf("expected 20, got %d", got)
		}
		if got := Value(cfg, 0); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("logarithmic_starts_at_zero", func(t *testing.T) {
		cfg := Config{Type: TypeLogarithmic}
		if got := Value(cfg, 0); got != 0 {
			t.Errorf("expected 0 at index 0, got %d", got)
		}
	})

	t.Run("sigmoid_inflection_is_half_max", func(t *testing.T) {
		cfg := Config{Type: TypeSigmoid}
		if got := Value(cfg, 15); got != 50 {
			t.Errorf("expected 50 at the inflection point, got %d", got)
		}
	})

	t.Run("sigmoid_is_nondecreasing", func(t *testing.T) {
		cfg := Config{Type: TypeSigmoid}
		prev := Value(cfg, 0)
		for index := 1; index <= 60; index++ {
			v := Value(cfg, index)
			if v < prev {
				t.Fatalf("value decreased from %d to %d at index %d", prev, v, index)
			}
			prev = v
		}
	})

	t.Run("negative_index_clamps_to_zero", func(t *testing.T) {
		cfg := Config{Type: TypeLinear, Params: Params{Multiplier: fp(5)}}
		if got := Value(cfg, -5); got != Value(cfg, 0) {
			t.Errorf("expected negative index to clamp to index 0")
		}
	})

	t.Run("unknown_type_degrades_to_zero", func(t *testing.T) {
		cfg := Config{Type: Type("cubic")}
		if got := Value(cfg, 10); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("non_positive_exponential_base_degrades_to_zero", func(t *testing.T) {
		cfg := Config{Type: TypeExponential, Params: Params{Base: fp(0)}}
		if got := Value(cfg, 10); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		cfg := Config{Type: TypeSigmoid, Params: Params{Max: fp(80), K: fp(0.3), Inflection: fp(10)}}
		for index := 0; index < 50; index++ {
			if Value(cfg, index) != Value(cfg, index) {
				t.Fatalf("value at index %d is not deterministic", index)
			}
		}
	})
}

func TestClosestIndex(t *testing.T) {
	t.Run("exact_match", func(t *testing.T) {
		cfg := Config{Type: TypeLinear, Params: Params{Multiplier: fp(5)}}
		if got := ClosestIndex(cfg, 10, MaxIndex); got != 2 {
			t.Errorf("expected index 2, got %d", got)
		}
	})

	t.Run("between_values_picks_closest", func(t *testing.T) {
		cfg := Config{Type: TypeLinear, Params: Params{Multiplier: fp(5)}}
		// Values are 0, 5, 10, 15; 12 is closest to 10 at index 2.
		if got := ClosestIndex(cfg, 12, MaxIndex); got != 2 {
			t.Errorf("expected index 2, got %d", got)
		}
	})

	t.Run("zero_and_negative_targets_resolve_to_zero", func(t *testing.T) {
		cfg := Config{Type: TypeLinear}
		if got := ClosestIndex(cfg, 0, MaxIndex); got != 0 {
			t.Errorf("expected index 0 for target 0, got %d", got)
		}
		if got := ClosestIndex(cfg, -4, MaxIndex); got != 0 {
			t.Errorf("expected index 0 for negative target, got %d", got)
		}
	})

	t.Run("flat_exponential_run", func(t *testing.T) {
		// With base 1.15 the value stays 1 for indexes 0..4; any of those is a
		// valid answer for target 1.
		cfg := Config{Type: TypeExponential, Params: Params{Base: fp(1.15)}}
		got := ClosestIndex(cfg, 1, MaxIndex)
		if Value(cfg, got) != 1 {
			t.Errorf("expected an index whose value is 1, got index %d (value %d)", got, Value(cfg, got))
		}
	})

	t.Run("exponential_target_in_range", func(t *testing.T) {
		// The search domain reaches deep into the saturated region; the
		// clamped values must steer it back to the exact match at index 17.
		cfg := Config{Type: TypeExponential, Params: Params{Base: fp(1.15)}}
		if got := ClosestIndex(cfg, 10, MaxIndex); got != 17 {
			t.Errorf("expected index 17, got %d", got)
		}
	})

	t.Run("non_monotonic_scans", func(t *testing.T) {
		cfg := Config{Type: TypeLinear, Params: Params{Multiplier: fp(-1), Offset: fp(10)}}
		// Values are 10, 9, 8, 7, ...; 7 appears exactly at index 3.
		if got := ClosestIndex(cfg, 7, 100); got != 3 {
			t.Errorf("expected index 3, got %d", got)
		}
	})

	t.Run("respects_max_index", func(t *testing.T) {
		cfg := Config{Type: TypeLinear}
		if got := ClosestIndex(cfg, 500, 100); got != 100 {
			t.Errorf("expected index 100, got %d", got)
		}
	})

	t.Run("roundtrips_through_value", func(t *testing.T) {
		for _, cfg := range []Config{
			{Type: TypeLinear, Params: Params{Multiplier: fp(3)}},
			{Type: TypeSqrt, Params: Params{Multiplier: fp(10)}},
			{Type: TypeSigmoid},
		} {
			for index := 0; index <= 30; index++ {
				target := Value(cfg, index)
				if target <= 0 {
					continue
				}
				got := ClosestIndex(cfg, target, MaxIndex)
				if Value(cfg, got) != target {
					t.Errorf("%s: target %d from index %d resolved to index %d (value %d)",
						cfg.Type, target, index, got, Value(cfg, got))
				}
			}
		}
	})
}
