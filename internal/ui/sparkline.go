package ui

import "strings"

// sparkRunes are the eight bar heights, lowest first.
var sparkRunes = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps the most recent throughput samples and renders them as
// block characters scaled to the largest sample in the window.
type Sparkline struct {
	samples []float64
	head    int
	count   int
}

// NewSparkline creates a sparkline holding up to capacity samples.
func NewSparkline(capacity int) *Sparkline {
	if capacity <= 0 {
		capacity = 60
	}
	return &Sparkline{samples: make([]float64, capacity)}
}

// Add appends a sample, evicting the oldest when full.
func (s *Sparkline) Add(v float64) {
	if v < 0 {
		v = 0
	}
	s.samples[s.head] = v
	s.head = (s.head + 1) % len(s.samples)
	if s.count < len(s.samples) {
		s.count++
	}
}

// Len returns the number of samples held.
func (s *Sparkline) Len() int { return s.count }

// window returns up to n most recent samples, oldest first.
func (s *Sparkline) window(n int) []float64 {
	if n > s.count {
		n = s.count
	}
	out := make([]float64, n)
	start := s.head - n
	for i := range out {
		out[i] = s.samples[(start+i+len(s.samples))%len(s.samples)]
	}
	return out
}

// Render draws the last width samples, left-padded with the lowest bar.
func (s *Sparkline) Render(width int) string {
	if width <= 0 {
		return ""
	}
	vals := s.window(width)

	var peak float64
	for _, v := range vals {
		if v > peak {
			peak = v
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(string(sparkRunes[0]), width-len(vals)))
	for _, v := range vals {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
