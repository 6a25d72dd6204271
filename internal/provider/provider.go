package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// Resolver maps a holder to a user id. The bool is false when the holder
// could not be resolved; implementations never return an error for that.
type Resolver interface {
	Resolve(ctx context.Context, holder domain.HolderID) (domain.UserID, bool)
}

// Dispatcher delivers the aggregated push notification of a run.
// Failures are reported through the outcome, never by panicking.
type Dispatcher interface {
	Send(ctx context.Context, payload domain.Payload) domain.DispatchOutcome
}

// LookupHooks carries the metric callbacks injected by main.
// Both are optional (nil = no-op).
type LookupHooks struct {
	OnResolved   func(latency time.Duration)
	OnUnresolved func(reason string, latency time.Duration)
}

// StatusError is returned when an endpoint answers with an unexpected status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID stores the run id on ctx. Outgoing requests echo it in
// the X-Correlation-ID header so a run can be traced on the receiving side.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
