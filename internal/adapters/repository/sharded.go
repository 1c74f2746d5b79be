package repository

import (
	"cmp"
	"container/list"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/veloperf/internal/domain/model"
	"github.com/okian/veloperf/pkg/metrics"
)

const (
	defaultShardCount            = 8
	defaultMetricsUpdateInterval = 10 * time.Second
)

type shard struct {
	mu      sync.RWMutex
	records map[string]model.Record
	// order holds IDs oldest first; pos indexes it by ID.
	order *list.List
	pos   map[string]*list.Element
}

// ShardedStore is an in-memory Store that spreads records over
// independently locked maps keyed by the xxhash of the job ID. With a
// record limit, each shard keeps its share of the limit and evicts its
// oldest finished records to admit new ones.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	maxRecords            int // <= 0 means unbounded
	perShard              int
	metricsUpdateInterval time.Duration
}

// NewShardedStore creates the store and runs its metrics updater until ctx
// is done.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRecords > 0 {
		s.perShard = max(1, (s.maxRecords+s.shardCount-1)/s.shardCount)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			records: make(map[string]model.Record),
			order:   list.New(),
			pos:     make(map[string]*list.Element),
		}
	}

	metrics.UpdateStoreShardCount(s.shardCount)
	go s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// Put inserts or replaces a record. A new ID in a full shard evicts the
// oldest finished record of that shard; pending records are never evicted.
func (s *ShardedStore) Put(_ context.Context, rec model.Record) error {
	if rec.ID == "" {
		return ErrInvalidID
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("put", msSince(start)) }()

	sh := s.shardFor(rec.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := sh.records[rec.ID]
	if ok && cur.Finished() && !rec.Finished() {
		return nil
	}
	if !ok {
		if s.perShard > 0 && len(sh.records) >= s.perShard {
			sh.evictOldestFinished()
		}
		sh.pos[rec.ID] = sh.order.PushBack(rec.ID)
	}
	sh.records[rec.ID] = rec
	return nil
}

func (sh *shard) evictOldestFinished() {
	for e := sh.order.Front(); e != nil; e = e.Next() {
		id, _ := e.Value.(string)
		if !sh.records[id].Finished() {
			continue
		}
		sh.order.Remove(e)
		delete(sh.pos, id)
		delete(sh.records, id)
		metrics.RecordStoreEviction()
		return
	}
}

// Get returns the record for id.
func (s *ShardedStore) Get(_ context.Context, id string) (model.Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", msSince(start)) }()

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[id]
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns records ordered by submission time then ID.
func (s *ShardedStore) List(_ context.Context, status model.Status, limit int) ([]model.Record, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("list", msSince(start)) }()

	var out []model.Record
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			if status == "" || rec.Status == status {
				out = append(out, rec)
			}
		}
		sh.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b model.Record) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *ShardedStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateMetrics()
		}
	}
}

func (s *ShardedStore) updateMetrics() {
	total := 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.records)
		sh.mu.RUnlock()
		total += n
		metrics.UpdateStoreRecordsPerShard(strconv.Itoa(i), n)
	}
	metrics.UpdateStoreRecordsTotal(total)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
