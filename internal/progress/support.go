package progress

import "time"

// ===== Clock =====

// Clock abstracts time so day boundaries can be driven from tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock implementation backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}
