package meter

// Smoother is an exponential moving average over raw readings. It is the
// only piece of filter state in the process: one instance, owned by the
// Meter, mutated only from the measurement loop.
type Smoother struct {
	alpha  float64
	value  float64
	seeded bool
}

// NewSmoother creates a smoother with the given EMA coefficient.
// Alpha must be in (0,1] (enforced by config.Validate); smaller values are
// smoother but slower to track.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update folds a raw reading into the average and returns the new filtered
// value. The first update seeds the filter directly.
func (s *Smoother) Update(raw float64) float64 {
	if !s.seeded {
		s.value = raw
		s.seeded = true
		return s.value
	}

	s.value = s.alpha*raw + (1-s.alpha)*s.value
	return s.value
}

// Seed sets the filter state directly, marking it seeded.
func (s *Smoother) Seed(value float64) {
	s.value = value
	s.seeded = true
}

// Value returns the current filtered value without updating.
func (s *Smoother) Value() float64 {
	return s.value
}

// Seeded reports whether the filter has been initialized.
func (s *Smoother) Seeded() bool {
	return s.seeded
}

// Stabilize applies n updates from live readings so the filter converges
// near steady state before the control loop reports results. Faulted
// readings (negative sentinel) are skipped explicitly: the filter holds its
// value rather than absorbing garbage. If every reading faulted, the filter
// is seeded with defaultSeed (typically the calibrated midpoint).
func (s *Smoother) Stabilize(read func() int, n int, defaultSeed float64) {
	for i := 0; i < n; i++ {
		raw := read()
		if raw < 0 {
			continue
		}
		s.Update(float64(raw))
	}

	if !s.seeded {
		s.Seed(defaultSeed)
	}
}
