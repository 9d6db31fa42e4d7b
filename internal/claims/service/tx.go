package service

import (
	"context"
	"sync"
	"time"

	dErrors "alapay/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for a claim mutation: the
// status write and its note insert succeed or fail as one unit. The key is
// the mutated claim's identifier so implementations can scope their locking.
// Implementations wrap a database transaction or, in-memory, a sharded lock.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// shardedTx provides fine-grained locking using sharded mutexes. Operations
// are distributed across shards by a hash of the claim ID, so concurrent
// mutations of the same claim serialize while unrelated claims proceed in
// parallel.
const numTxShards = 128

// defaultTxTimeout bounds a claim mutation transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

// NewInMemoryTx returns the lock-based StoreTx used with in-memory stores.
func NewInMemoryTx() StoreTx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := int(hashKey(key) % numTxShards)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashKey uses FNV-1a for even shard distribution.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
