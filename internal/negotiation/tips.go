// Package negotiation extracts discrete coaching tips from the free-text
// payload returned by the recommendation service.
package negotiation

import "strings"

// Marker is the literal heading that opens the tip section inside a
// recommendation payload. The payload format is an intentionally loose
// contract with the recommendation service; see ExtractTips.
const Marker = "Negotiation Strategies:"

// ExtractTips scans payload lines in order and collects the tip list that
// follows the Marker line. The marker line itself is discarded, collection
// stops at the first blank line after it started, and each tip is stripped of
// surrounding whitespace and leading bullet characters. A payload without the
// marker yields no tips; that is a normal outcome, not an error.
func ExtractTips(payload string) []string {
	var tips []string
	extracting := false
	for _, line := range strings.Split(payload, "\n") {
		if !extracting {
			if strings.Contains(line, Marker) {
				extracting = true
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		tips = append(tips, strings.Trim(line, " -\t"))
	}
	return tips
}
