// Package validation collects per-field form errors so a form can be
// rejected with every problem reported at once.
package validation

import (
	"sort"
	"strings"
)

// Errors maps a form field to the messages raised against it.
type Errors map[string][]string

// Add records msg against field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// HasErrors reports whether any field failed.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the failing fields in stable order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Messages flattens every message in field order.
func (e Errors) Messages() []string {
	var out []string
	for _, f := range e.Fields() {
		out = append(out, e[f]...)
	}
	return out
}

// Err returns e as an error, or nil when nothing failed.
func (e Errors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	return strings.Join(e.Messages(), "; ")
}
