package logging

import "strings"

// FormatSubject builds the collection/stage subject string used in console output.
func FormatSubject(collection, stage string) string {
	collection = strings.TrimSpace(collection)
	stage = strings.TrimSpace(stage)
	switch {
	case collection != "" && stage != "":
		return collection + " · " + stage
	case collection != "":
		return collection
	default:
		return stage
	}
}
