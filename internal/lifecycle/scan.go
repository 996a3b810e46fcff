package lifecycle

// Latest scans items from the end and returns the first value pick accepts,
// along with its index. Later entries override earlier ones, so this is the
// "latest value of a field" query over an ordered log.
func Latest[T, V any](items []T, pick func(T) (V, bool)) (V, int, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if v, ok := pick(items[i]); ok {
			return v, i, true
		}
	}
	var zero V
	return zero, -1, false
}

// First returns the index of the first item matching pred, or -1.
func First[T any](items []T, pred func(T) bool) int {
	for i := range items {
		if pred(items[i]) {
			return i
		}
	}
	return -1
}
