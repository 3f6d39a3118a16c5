package store

// chunkBatchSize bounds id-list filters so queries stay under backend
// parameter limits.
const chunkBatchSize = 500

// chunk splits items into batches of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = chunkBatchSize
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
