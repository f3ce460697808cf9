package client

import "time"

// Event is the snapshot passed to observer callbacks. Pagination
// events leave the status fields zero.
type Event struct {
	Count      int
	MaxCount   int
	Wait       time.Duration
	URL        string
	StatusCode int
	StatusText string
}

// Observer receives fire-and-forget notifications, each invoked
// synchronously before the corresponding wait. Panics are not caught;
// observers needing isolation should wrap themselves.
type Observer interface {
	OnRedirect(Event)
	OnRetry(Event)
	OnPaginate(Event)
}
