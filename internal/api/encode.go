package api

import (
	"encoding/json"
	"io"
)

// Encode writes v as one JSON document. HTML escaping is off so open and
// image URLs keep their literal '&'.
func Encode(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
