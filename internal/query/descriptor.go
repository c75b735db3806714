// Package query runs parameterized SQL over a storage.Conn and materializes
// the full result as a table.Table.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// ErrInvalidQuery is returned, wrapped with a reason, for requests rejected
// before anything is sent to the database.
var ErrInvalidQuery = errors.New("query: invalid query")

// Descriptor is an immutable query text plus named parameters. Parameters are
// referenced in the text as @name and bound by the backend, never spliced
// into the text.
type Descriptor struct {
	text   string
	params map[string]any
}

// New returns a Descriptor holding a private copy of params.
func New(text string, params map[string]any) Descriptor {
	var cp map[string]any
	if len(params) > 0 {
		cp = make(map[string]any, len(params))
		for k, v := range params {
			cp[k] = v
		}
	}
	return Descriptor{text: text, params: cp}
}

// Text returns the query text.
func (d Descriptor) Text() string { return d.text }

// Params returns a copy of the parameters.
func (d Descriptor) Params() map[string]any {
	if d.params == nil {
		return nil
	}
	cp := make(map[string]any, len(d.params))
	for k, v := range d.params {
		cp[k] = v
	}
	return cp
}

// With returns a copy of d with name bound to v.
func (d Descriptor) With(name string, v any) Descriptor {
	p := d.Params()
	if p == nil {
		p = map[string]any{}
	}
	p[name] = v
	return Descriptor{text: d.text, params: p}
}

// Fingerprint is a short stable id for the query text, used to correlate log
// lines and errors.
func (d Descriptor) Fingerprint() string {
	return strconv.FormatUint(xxh3.HashString(d.text), 16)
}

// Preview returns the first 100 characters of the text with whitespace
// collapsed.
func (d Descriptor) Preview() string {
	s := strings.Join(strings.Fields(d.text), " ")
	r := []rune(s)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return s
}

// Validate reports whether d can be sent. Text must be non-blank and every
// parameter must be a scalar (text, integer, float, bool, time or nil).
// Whether the text references only known parameters is left to the backend.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.text) == "" {
		return fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	}
	for k, v := range d.params {
		if k == "" {
			return fmt.Errorf("%w: empty parameter name", ErrInvalidQuery)
		}
		if !scalar(v) {
			return fmt.Errorf("%w: parameter %q has unsupported type %T", ErrInvalidQuery, k, v)
		}
	}
	return nil
}

func scalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time:
		return true
	default:
		return false
	}
}
