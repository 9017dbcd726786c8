package calendar

import (
	"math"
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// fold combines the defined child values in order. The first defined
// value seeds the accumulator; later ones are merged with op.
func fold(children []Calendar, t time.Time, op func(acc, v float64) float64) (float64, bool) {
	var (
		acc     float64
		defined bool
	)
	for _, c := range children {
		v, ok := c.Units(t)
		if !ok {
			continue
		}
		if !defined {
			acc, defined = v, true
			continue
		}
		acc = op(acc, v)
	}
	return acc, defined
}

// Sum adds the capacities of its children.
type Sum struct {
	children []Calendar
}

func NewSum(children ...Calendar) *Sum { return &Sum{children: children} }

func (s *Sum) Units(t time.Time) (float64, bool) {
	return fold(s.children, t, func(acc, v float64) float64 { return acc + v })
}

func (*Sum) sealed() {}

// Diff subtracts every later child from the first defined one, floored at zero.
type Diff struct {
	children []Calendar
}

func NewDiff(children ...Calendar) *Diff { return &Diff{children: children} }

func (d *Diff) Units(t time.Time) (float64, bool) {
	v, ok := fold(d.children, t, func(acc, v float64) float64 { return acc - v })
	if !ok {
		return 0, false
	}
	return math.Max(v, 0), true
}

func (*Diff) sealed() {}

// Product multiplies the capacities of its children.
type Product struct {
	children []Calendar
}

func NewProduct(children ...Calendar) *Product { return &Product{children: children} }

func (p *Product) Units(t time.Time) (float64, bool) {
	return fold(p.children, t, func(acc, v float64) float64 { return acc * v })
}

func (*Product) sealed() {}

// Quotient divides a calendar either by a constant or by other calendars.
type Quotient struct {
	children []Calendar
	divisor  float64
	scalar   bool
}

// Divide scales c by 1/divisor. A zero divisor is rejected.
func Divide(c Calendar, divisor float64) (*Quotient, error) {
	if divisor == 0 {
		return nil, planerr.Validationf("divisor", nil, "division by zero")
	}
	return &Quotient{children: []Calendar{c}, divisor: divisor, scalar: true}, nil
}

// DivideBy divides the first defined child by every later defined child.
// A day on which a divisor has zero capacity is undefined.
func DivideBy(children ...Calendar) *Quotient {
	return &Quotient{children: children}
}

func (q *Quotient) Units(t time.Time) (float64, bool) {
	if q.scalar {
		v, ok := q.children[0].Units(t)
		if !ok {
			return 0, false
		}
		return v / q.divisor, true
	}
	var (
		acc     float64
		defined bool
	)
	for _, c := range q.children {
		v, ok := c.Units(t)
		if !ok {
			continue
		}
		if !defined {
			acc, defined = v, true
			continue
		}
		if v == 0 {
			return 0, false
		}
		acc /= v
	}
	return acc, defined
}

func (*Quotient) sealed() {}

// Disjunction returns the first defined non-zero child value, or zero when
// every defined child is zero.
type Disjunction struct {
	children []Calendar
}

func Any(children ...Calendar) *Disjunction { return &Disjunction{children: children} }

func (d *Disjunction) Units(t time.Time) (float64, bool) {
	defined := false
	for _, c := range d.children {
		v, ok := c.Units(t)
		if !ok {
			continue
		}
		if v != 0 {
			return v, true
		}
		defined = true
	}
	return 0, defined
}

func (*Disjunction) sealed() {}

// Transform applies a numeric function to a child calendar.
type Transform struct {
	child Calendar
	fn    func(float64) float64
}

func Func(c Calendar, fn func(float64) float64) *Transform {
	return &Transform{child: c, fn: fn}
}

// Scale multiplies every defined value of c by k.
func Scale(c Calendar, k float64) *Transform {
	return Func(c, func(v float64) float64 { return v * k })
}

func (tr *Transform) Units(t time.Time) (float64, bool) {
	v, ok := tr.child.Units(t)
	if !ok {
		return 0, false
	}
	return tr.fn(v), true
}

func (*Transform) sealed() {}
