package database

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by *pgxpool.Pool and by a wrapped Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Status is the health of each named dependency: "ok" or the error text.
type Status map[string]string

// Healthy reports whether every dependency answered.
func (s Status) Healthy() bool {
	for _, v := range s {
		if v != "ok" {
			return false
		}
	}
	return true
}

// Check pings every dependency concurrently with a shared timeout.
func Check(ctx context.Context, timeout time.Duration, deps map[string]Pinger) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]string, 0, len(deps))
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
		results = append(results, "")
	}

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			if err := deps[name].Ping(ctx); err != nil {
				results[i] = err.Error()
				return nil
			}
			results[i] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	status := make(Status, len(names))
	for i, name := range names {
		status[name] = results[i]
	}
	return status
}
