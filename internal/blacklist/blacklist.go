// Package blacklist filters mail by original sender address against a
// configured list of substring rules.
package blacklist

import "strings"

// Match tests the sender address against the rules in configured order and
// returns the first rule contained in the address. Matching is
// case-sensitive substring containment. Empty rules never match.
func Match(sender string, rules []string) (string, bool) {
	for _, rule := range rules {
		if rule == "" {
			continue
		}
		if strings.Contains(sender, rule) {
			return rule, true
		}
	}
	return "", false
}
