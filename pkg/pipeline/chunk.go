package pipeline

// Chunks partitions [start, end) into consecutive chunks of size, the last
// one possibly shorter. It returns nil for an empty range or size < 1.
func Chunks(start, end, size int) [][]int {
	if size < 1 || end <= start {
		return nil
	}

	n := (end - start + size - 1) / size
	chunks := make([][]int, 0, n)
	for lo := start; lo < end; lo += size {
		hi := min(lo+size, end)
		chunk := make([]int, 0, hi-lo)
		for id := lo; id < hi; id++ {
			chunk = append(chunk, id)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
