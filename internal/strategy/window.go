package strategy

import "github.com/shopspring/decimal"

// Window is a bounded ring of price samples. Appending at capacity
// evicts the oldest sample.
type Window struct {
	samples []decimal.Decimal
	head    int
	length  int
}

// NewWindow allocates a window holding up to size samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{samples: make([]decimal.Decimal, size)}
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(price decimal.Decimal) {
	idx := (w.head + w.length) % len(w.samples)
	w.samples[idx] = price
	if w.length < len(w.samples) {
		w.length++
	} else {
		w.head = (w.head + 1) % len(w.samples)
	}
}

// Len reports the number of held samples.
func (w *Window) Len() int {
	return w.length
}

// Cap reports the window capacity.
func (w *Window) Cap() int {
	return len(w.samples)
}

// Values returns the samples oldest-first.
func (w *Window) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, w.length)
	for i := 0; i < w.length; i++ {
		out = append(out, w.samples[(w.head+i)%len(w.samples)])
	}
	return out
}

// Last returns up to n of the newest samples, oldest-first.
func (w *Window) Last(n int) []decimal.Decimal {
	if n > w.length {
		n = w.length
	}
	out := make([]decimal.Decimal, 0, n)
	for i := w.length - n; i < w.length; i++ {
		out = append(out, w.samples[(w.head+i)%len(w.samples)])
	}
	return out
}

// Mean returns the average of the held samples. The second result is
// false when the window is empty.
func (w *Window) Mean() (decimal.Decimal, bool) {
	if w.length == 0 {
		return decimal.Decimal{}, false
	}
	sum := decimal.Decimal{}
	for i := 0; i < w.length; i++ {
		sum = sum.Add(w.samples[(w.head+i)%len(w.samples)])
	}
	return sum.Div(decimal.NewFromInt(int64(w.length))), true
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Decimal{}
	}
	sum := decimal.Decimal{}
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
