package triggerflow

import "context"

// Limit is one platform resource usage counter, such as queries issued or
// rows written, as seen at the end of a run.
type Limit struct {
	Name string
	Used int64
	Max  int64
}

// LimitsProvider reports the platform's resource usage counters. triggerflow
// never computes them; it only logs and records what the provider returns.
type LimitsProvider interface {
	Limits(ctx context.Context) []Limit
}

// LimitsFunc adapts a function to LimitsProvider.
type LimitsFunc func(ctx context.Context) []Limit

// Limits implements LimitsProvider.
func (f LimitsFunc) Limits(ctx context.Context) []Limit {
	return f(ctx)
}
