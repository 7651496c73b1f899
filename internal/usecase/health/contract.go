package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker is an optional named dependency check.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}
