package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ExternalChecker checks the external system the batches write to.
type ExternalChecker interface {
	HealthCheck(ctx context.Context) error
}
