package rowqueue

import "time"

// Clock supplies the current time to a Runner. Tests inject a deterministic
// implementation via WithClock instead of depending on wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
