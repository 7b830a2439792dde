package debugevent

import "iter"

// Mappable is a record that knows its own map representation.
type Mappable interface {
	AsMap() map[string]interface{}
}

// Serialize lazily maps each record to its AsMap form, preserving order.
// The result can be ranged over again only if events can.
func Serialize[E Mappable](events iter.Seq[E]) iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		for event := range events {
			if !yield(event.AsMap()) {
				return
			}
		}
	}
}
