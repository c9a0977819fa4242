package wire

import "strings"

// Find returns the value of the first header matching name
// case-insensitively, and whether it was present.
func Find(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
