package services

// strideIndexes returns up to n indexes spread evenly over [0, total).
// Sampling is deterministic so detection and embeddings are reproducible.
func strideIndexes(total, n int) []int {
	if n <= 0 || total <= 0 {
		return nil
	}
	if total <= n {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i * total / n
	}
	return idx
}

// strideSample returns up to n evenly spaced elements of values.
func strideSample[T any](values []T, n int) []T {
	if len(values) <= n {
		return values
	}
	idx := strideIndexes(len(values), n)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
