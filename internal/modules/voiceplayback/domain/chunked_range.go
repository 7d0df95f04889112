package domain

// chunkedRange partitions the half-open range starting at start into
// consecutive chunks whose lengths are given by chunkSizes, returning
// one []int per chunk. It underlies the fair indexer's bucketing of
// same-requester runs.
func chunkedRange(start int, chunkSizes []int) [][]int {
	ranges := make([][]int, len(chunkSizes))
	current := start
	for i, size := range chunkSizes {
		bucket := make([]int, size)
		for j := 0; j < size; j++ {
			bucket[j] = current + j
		}
		ranges[i] = bucket
		current += size
	}
	return ranges
}
