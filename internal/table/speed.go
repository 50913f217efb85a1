package table

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	MinSpeed = 0.25
	MaxSpeed = 10
)

// Speed is the process-wide game speed. Host delays are divided by it; 2 runs the tables twice as
// fast. Safe for concurrent use.
type Speed struct {
	bits atomic.Uint64
}

func NewSpeed(mult float64) *Speed {
	s := &Speed{}
	if err := s.Set(mult); err != nil {
		s.bits.Store(math.Float64bits(1))
	}
	return s
}

func (s *Speed) Set(mult float64) error {
	if math.IsNaN(mult) || mult < MinSpeed || mult > MaxSpeed {
		return fmt.Errorf("game speed must be between %.2f and %.0f, got %v", MinSpeed, float64(MaxSpeed), mult)
	}
	s.bits.Store(math.Float64bits(mult))
	return nil
}

func (s *Speed) Get() float64 {
	if s == nil {
		return 1
	}
	return math.Float64frombits(s.bits.Load())
}

// Scale applies the multiplier to a delay.
func (s *Speed) Scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / s.Get())
}
