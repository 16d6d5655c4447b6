package telemetry

import "context"

// Apply patches one field's extracted value into a snapshot. Each
// extractor's apply function touches only its own field, which keeps the
// merge order-independent.
type Apply func(*Snapshot)

// Extractor turns the raw payloads fetched for one field into a snapshot
// patch. It is handed whatever subset of its declared sources could be
// fetched, possibly none; with no payload it must either fall back to its
// own secondary transport calls or return ErrAbsent-style failure, never
// panic. A nil Apply with a nil error means "nothing to record".
type Extractor func(ctx context.Context, p Payload) (Apply, error)

// Binding ties a canonical field to its extractor and the prioritized
// source commands feeding it.
type Binding struct {
	Extract Extractor
	Sources []Source
}

// Registry maps canonical fields to their bindings for one device dialect.
// It is built once at device construction and never mutated afterwards.
type Registry map[Field]Binding

// Lookup resolves a field's binding, failing with *UnknownFieldError when
// the dialect does not declare the field.
func (r Registry) Lookup(f Field) (Binding, error) {
	b, ok := r[f]
	if !ok {
		return Binding{}, &UnknownFieldError{Field: f}
	}
	return b, nil
}

// Fields returns the fields this registry declares, filtered and ordered
// by the canonical field list.
func (r Registry) Fields() []Field {
	var out []Field
	for _, f := range AllFields() {
		if _, ok := r[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
