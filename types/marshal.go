package types

import (
	"github.com/fatih/structs"
)

// validTags encodes valid struct tags allowing for the control of the
// marshalled output.
var validTags = map[string]struct{}{
	// The default tag: every field makes it into the output.
	"structs": {},

	// When leveraging the lean tag only the fields needed to identify an
	// address or interface are kept. Fields to drop carry a `lean:"-"` tag.
	"lean": {},
}

// ValidVerbosity reports whether v can be passed to Map.
func ValidVerbosity(v string) bool {
	if v == "" {
		return true
	}
	_, ok := validTags[v]
	return ok
}

// Map turns a tagged struct (or a pointer to one) into a map ready to be
// handed to encoding/json. The verbosity selects the struct tag used to name
// and filter fields; an empty or unknown verbosity falls back to the default
// `structs` tag. Nested structs and slices of structs are converted with the
// same tag.
func Map(v interface{}, verbosity string) map[string]interface{} {
	s := structs.New(v)
	if verbosity != "" {
		if _, ok := validTags[verbosity]; ok {
			s.TagName = verbosity
		}
	}
	return s.Map()
}

// Maps applies Map to every element of a slice of tagged structs.
func Maps[T any](vs []T, verbosity string) []map[string]interface{} {
	ms := make([]map[string]interface{}, 0, len(vs))
	for i := range vs {
		ms = append(ms, Map(&vs[i], verbosity))
	}
	return ms
}
