package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler passes num out of every den events. A zero ratio passes everything.
type ratioSampler struct {
	ratio   atomic.Uint64 // num<<32 | den
	counter atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.ratio.Store(uint64(min(num, den))<<32 | uint64(den))
	s.counter.Store(0)
}

func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if den == 0 {
		return true
	}
	return (s.counter.Add(1)-1)%den < num
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d.
func parseRatioSpec(spec string) (int, int) {
	n, d, found := strings.Cut(strings.TrimSpace(spec), "/")
	if !found {
		n, d = "1", n
	}
	num, err1 := strconv.Atoi(strings.TrimSpace(n))
	den, err2 := strconv.Atoi(strings.TrimSpace(d))
	if err1 != nil || err2 != nil || den <= 0 || (!found && num <= 0) {
		return 0, 0
	}
	return num, den
}
