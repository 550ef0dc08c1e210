package chain

// Ellipsify shortens s to its first and last n characters joined by "..".
// Strings short enough to be shown whole are returned unchanged.
func Ellipsify(s string, n int) string {
	if n <= 0 || len(s) <= 2*n+2 {
		return s
	}
	return s[:n] + ".." + s[len(s)-n:]
}
