package postgres

import "time"

func timeAfter(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// backoff returns a short, linearly increasing delay for retry attempt n.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * 10 * time.Millisecond
}
