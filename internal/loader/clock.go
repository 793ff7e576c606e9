package loader

import "github.com/jonboulle/clockwork"

// clock stamps LoadedAt and times the fetch. Tests replace it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the loader's time source; nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}
