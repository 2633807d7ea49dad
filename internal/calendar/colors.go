package calendar

import "strings"

var colorNames = map[string]string{
	"w": "white",
	"r": "red",
	"v": "violet",
	"g": "green",
	"b": "black",
}

// NormalizeColor maps a single-letter vestment code to its display name.
// Unknown codes are returned unchanged.
func NormalizeColor(code string) string {
	if name, ok := colorNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return code
}

func normalizeColors(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, NormalizeColor(c))
	}
	return out
}
