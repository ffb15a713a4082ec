package probe

import (
	"encoding/json"
	"fmt"
)

// Mapping converts one raw array element into a record.
type Mapping[T any] func(raw json.RawMessage) (T, error)

// Result is the outcome of mapping a single element.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Skipped records an element dropped during projection.
type Skipped struct {
	Index int
	Err   error
}

// Projection holds the records that mapped cleanly, in source order, and the
// elements that did not.
type Projection[T any] struct {
	Records []T
	Skipped []Skipped
}

// MapEach applies mapping to every element. A mapping that panics yields an
// error result for that element only.
func MapEach[T any](items []json.RawMessage, mapping Mapping[T]) []Result[T] {
	results := make([]Result[T], len(items))
	for i, raw := range items {
		results[i] = mapOne(i, raw, mapping)
	}
	return results
}

func mapOne[T any](i int, raw json.RawMessage, mapping Mapping[T]) (res Result[T]) {
	res.Index = i
	defer func() {
		if p := recover(); p != nil {
			var zero T
			res.Value = zero
			res.Err = fmt.Errorf("mapping panicked: %v", p)
		}
	}()
	res.Value, res.Err = mapping(raw)
	return res
}

// Project maps items and keeps the successful records in order. It never
// fails as a whole; malformed elements land in Skipped.
func Project[T any](items []json.RawMessage, mapping Mapping[T]) Projection[T] {
	p := Projection[T]{Records: make([]T, 0, len(items))}
	for _, r := range MapEach(items, mapping) {
		if r.Err != nil {
			p.Skipped = append(p.Skipped, Skipped{Index: r.Index, Err: r.Err})
			continue
		}
		p.Records = append(p.Records, r.Value)
	}
	return p
}
