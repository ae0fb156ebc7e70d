// Package batch groups debounced file changes into prioritized batches.
// Changes accumulate in a queue that flushes when it reaches its size limit
// or when the oldest unflushed change has waited out the batch timeout,
// whichever comes first. Within a batch, changes are ordered by a priority
// score so the most useful analysis work runs first.
package batch
