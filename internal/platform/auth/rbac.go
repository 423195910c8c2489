package auth

// HasAnyRole reports whether have contains any of want. There is no implicit
// admin bypass: admin must be listed where it is allowed.
func HasAnyRole(have []string, want ...string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
