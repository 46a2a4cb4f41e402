package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize bounds how many records travel in a single create or update request.
	DefaultBatchSize = 50
	// DefaultPageSize bounds how many records a single existence-check page requests.
	DefaultPageSize  = 1000
)

// Chunk splits items into fixed-size batches, preserving order. A non-positive
// batch size yields a single batch.
func Chunk[ItemType any](items []ItemType, batchSize int) [][]ItemType {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		return [][]ItemType{items}
	}

	batches := make([][]ItemType, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// ForEachConcurrent fans the worker out across all items and waits for every
// unit to finish before returning. Workers receive the caller's context
// unchanged, so a failing unit never cancels its siblings: units already in
// flight run to completion and the first failure is returned after the barrier.
func ForEachConcurrent[ItemType any](executionContext context.Context, items []ItemType, worker func(context.Context, ItemType) error) error {
	var group errgroup.Group
	for _, item := range items {
		currentItem := item
		group.Go(func() error {
			return worker(executionContext, currentItem)
		})
	}
	return group.Wait()
}
