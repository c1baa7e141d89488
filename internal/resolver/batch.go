package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchWorkers bounds the goroutines used by ResolveAll. Shard
// fetches are still limited by the scheduler; this only caps how many
// resolutions wait on it at once.
const DefaultBatchWorkers = 16

// ResolveAll resolves keys concurrently. results[i] and errs[i] hold the
// outcome for keys[i]; a failure for one key does not stop the others.
func (r *Resolver) ResolveAll(ctx context.Context, keys []string) (results []Result, errs []error) {
	results = make([]Result, len(keys))
	errs = make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(DefaultBatchWorkers)
	for i, key := range keys {
		g.Go(func() error {
			results[i], errs[i] = r.Resolve(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}
