package depgraph

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CancelFunc is a cooperative cancellation token, polled at
// pair-granularity by verification workers. A nil CancelFunc (the
// default) means the run is never cancelled.
type CancelFunc func() bool

// workerCount resolves the configured parallelism to a usable worker
// count, defaulting to the host CPU count.
func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// shardBounds splits [0, total) into at most workers contiguous,
// roughly-equal shards, skipping empty shards when total < workers.
func shardBounds(total, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}
	if workers == 0 {
		return nil
	}
	bounds := make([][2]int, 0, workers)
	base := total / workers
	rem := total % workers
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		bounds = append(bounds, [2]int{start, start + size})
		start += size
	}
	return bounds
}

// parallelGenerateCandidates shards the index's files across workers and
// merges each shard's local candidate map, bounding per-worker memory
// (each worker only ever holds the pairs from its own file shard) and
// avoiding a single shared mutable map during the fan-out.
func parallelGenerateCandidates(ctx context.Context, idx *PRBitmapIndex, workers int) (map[pair][]string, error) {
	paths := idx.paths
	bounds := shardBounds(len(paths), workerCount(workers))
	if len(bounds) == 0 {
		return map[pair][]string{}, nil
	}

	partials := make([]map[pair][]string, len(bounds))
	g, gctx := errgroup.WithContext(ctx)
	for shard, b := range bounds {
		shard, b := shard, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := make(map[pair][]string)
			for _, path := range paths[b[0]:b[1]] {
				bs := idx.byPath[path]
				if bs.Count() < 2 {
					continue
				}
				candidatesForFile(bs, func(p pair) {
					local[p] = append(local[p], path)
				})
			}
			partials[shard] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[pair][]string)
	for _, local := range partials {
		for p, files := range local {
			merged[p] = append(merged[p], files...)
		}
	}
	return merged, nil
}

// parallelVerify partitions candidate pairs by the "left" PR-index bucket
// (spec's recommended static work-assignment, preferred over a shared
// queue for predictable cache behavior) and runs the verifier over each
// bucket concurrently. Each worker accumulates into its own local
// Conflict slice; the caller performs the single-threaded merge.
func parallelVerify(
	ctx context.Context,
	idx *PRBitmapIndex,
	batch *normalizedBatch,
	candidates map[pair][]string,
	opts Options,
	workers int,
	cancel CancelFunc,
) ([]Conflict, error) {
	buckets := make(map[int][]pair)
	for p := range candidates {
		buckets[p.a] = append(buckets[p.a], p)
	}

	bucketKeys := make([]int, 0, len(buckets))
	for a := range buckets {
		bucketKeys = append(bucketKeys, a)
	}

	bounds := shardBounds(len(bucketKeys), workerCount(workers))
	if len(bounds) == 0 {
		return nil, nil
	}

	partials := make([][]Conflict, len(bounds))
	g, gctx := errgroup.WithContext(ctx)
	for shard, b := range bounds {
		shard, b := shard, b
		g.Go(func() error {
			var local []Conflict
			for _, a := range bucketKeys[b[0]:b[1]] {
				for _, p := range buckets[a] {
					if cancel != nil && cancel() {
						return ErrCancelled
					}
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}

					prA, prB := idx.PRAt(p.a), idx.PRAt(p.b)
					shared := candidates[pair{p.a, p.b}]
					c, err := verifyPair(prA, prB, shared, batch, opts)
					if err != nil {
						return err
					}
					if c != nil {
						local = append(local, *c)
					}
				}
			}
			partials[shard] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Conflict
	for _, local := range partials {
		all = append(all, local...)
	}
	return all, nil
}
