package utils

import (
	"log/slog"
	"sync"
)

const BATCH_SIZE = 10

// Partition splits items into consecutive batches of at most size items.
// The last batch may be shorter.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = BATCH_SIZE
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end:end])
	}
	return batches
}

// BatchQueue is a FIFO of pending batches.
type BatchQueue[T any] struct {
	batches [][]T
	lock    sync.Mutex
}

func NewBatchQueue[T any](items []T, size int) *BatchQueue[T] {
	return &BatchQueue[T]{
		batches: Partition(items, size),
	}
}

// Next dequeues the oldest batch.
func (q *BatchQueue[T]) Next() ([]T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.batches) == 0 {
		return nil, false
	}

	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, true
}

func (q *BatchQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.batches)
}

func (q *BatchQueue[T]) HasData() bool {
	return q.Len() > 0
}

func (q *BatchQueue[T]) LogBatchProcessing(batchType string, batch []T) {
	slog.Debug("[BatchQueue] Processing batch",
		slog.String("type", batchType),
		slog.Int("batch_size", len(batch)),
		slog.Int("remaining", q.Len()))
}
