package tools

import "fmt"

// CountNoun renders "1 doctor", "0 doctors", "3 doctors".
func CountNoun(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, Plural(n, singular, plural))
}

// Plural picks singular only when n == 1.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
