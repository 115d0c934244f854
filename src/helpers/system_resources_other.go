//go:build !linux

package helpers

// GetTotalSystemMemoryMB is not implemented off Linux; callers fall back to
// a fixed pool size.
func GetTotalSystemMemoryMB() int {
	return 0
}
