package ports

import "time"

// Clock abstracts the current time so lifecycle and scheduling logic can be
// tested without waiting on a wall clock
type Clock interface {
	Now() time.Time
}
