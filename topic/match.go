// Package topic implements MQTT topic subscription storage and wildcard
// matching: "+" (single level) and "#" (multi-level, trailing only).
package topic

import "strings"

// Matches reports whether a published topic matches a subscription
// pattern, per MQTT 3.1.1 §4.7. "+" matches exactly one non-empty level;
// "#" matches zero or more trailing levels and must be the pattern's last
// character, preceded by "/" or standing alone. All other characters must
// match literally, including level boundaries.
func Matches(pattern, topic string) bool {
	pLevels := strings.Split(pattern, "/")
	tLevels := strings.Split(topic, "/")

	for i, p := range pLevels {
		if p == "#" {
			// '#' must be the final pattern token; anything matches
			// from here on, including zero remaining levels.
			return i == len(pLevels)-1
		}
		if i >= len(tLevels) {
			return false
		}
		if p == "+" {
			if tLevels[i] == "" {
				return false
			}
			continue
		}
		if p != tLevels[i] {
			return false
		}
	}
	return len(pLevels) == len(tLevels)
}
