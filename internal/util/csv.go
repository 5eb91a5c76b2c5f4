package util

import "strings"

// SplitCSV turns a comma-separated string into a slice, trimming empties.
func SplitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(csv, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
