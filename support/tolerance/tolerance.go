package tolerance

// Tolerance counts failures against a fixed budget. max < 0 means
// unlimited. Used to bound consecutive retries of a single remote
// probe.
type Tolerance struct {
	counter int
	max     int
}

func NewTolerance(max int) *Tolerance {
	return &Tolerance{
		counter: 0,
		max:     max,
	}
}

func (t *Tolerance) Tolerate(cnt int) bool {
	t.counter += cnt
	if t.max >= 0 && t.counter > t.max {
		return false
	}
	return true
}

func (t *Tolerance) Reset() {
	t.counter = 0
}
