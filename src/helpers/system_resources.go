package helpers

const (
	defaultPagePoolSize = 2
	maxPagePoolSize     = 8
	// Memory budget per concurrently rendered page.
	pageBudgetMB = 512
)

// RecommendedPagePoolSize sizes the rendered-page pool from physical memory.
// Half of the RAM is reserved for the rest of the process and the OS.
func RecommendedPagePoolSize() int {
	totalMB := GetTotalSystemMemoryMB()
	if totalMB == 0 {
		return defaultPagePoolSize
	}

	size := (totalMB / 2) / pageBudgetMB
	switch {
	case size < 1:
		return 1
	case size > maxPagePoolSize:
		return maxPagePoolSize
	}
	return size
}
