package s2_metrics

import "math"

// Nullable arithmetic. A nil operand or an undefined result yields nil; nothing
// here returns NaN or ±Inf.

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func or0(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func div(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	return ptr(*a / *b)
}

// divPos divides only by a strictly positive denominator
func divPos(a, b *float64) *float64 {
	if b == nil || *b <= 0 {
		return nil
	}
	return div(a, b)
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a - *b)
}

func add(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a + *b)
}

func first(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// growth is cur/prior − 1 against a positive prior
func growth(cur, prior *float64) *float64 {
	if cur == nil || prior == nil || *prior <= 0 {
		return nil
	}
	return ptr(*cur / *prior - 1)
}

func avg2(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		return ptr((*a + *b) / 2)
	case a != nil:
		return a
	}
	return nil
}
