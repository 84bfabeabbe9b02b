package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through numerator out of every denominator calls.
// A zero ratio lets everything through.
type ratioSampler struct {
	ratio atomic.Uint64 // numerator<<32 | denominator
	calls atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(numerator, denominator int) {
	var packed uint64
	if numerator > 0 && denominator > 0 {
		packed = uint64(min(numerator, denominator))<<32 | uint64(uint32(denominator))
	}
	s.ratio.Store(packed)
	s.calls.Store(0)
}

// Allow reports whether this call falls inside the sampled share.
func (s *ratioSampler) Allow() bool {
	packed := s.ratio.Load()
	if packed == 0 {
		return true
	}
	num, den := packed>>32, packed&0xffffffff
	n := s.calls.Add(1) - 1
	return n%den < num
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d. Anything else is 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	num, den, isRatio := strings.Cut(spec, "/")
	if !isRatio {
		if d, err := strconv.Atoi(spec); err == nil && d > 0 {
			return 1, d
		}
		return 0, 0
	}
	n, errN := strconv.Atoi(strings.TrimSpace(num))
	d, errD := strconv.Atoi(strings.TrimSpace(den))
	if errN != nil || errD != nil {
		return 0, 0
	}
	return n, d
}
