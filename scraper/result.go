package scraper

import "encoding/json"

// Fields maps target names to extracted values, keeping the order in which
// names were first added.
type Fields struct {
	names  []string
	values map[string][]string
}

// NewFields creates an empty Fields.
func NewFields() *Fields {
	return &Fields{values: make(map[string][]string)}
}

// add stores values under name unless name is already present. It reports
// whether the values were stored.
func (f *Fields) add(name string, values []string) bool {
	if _, ok := f.values[name]; ok {
		return false
	}
	if values == nil {
		values = []string{}
	}
	f.names = append(f.names, name)
	f.values[name] = values
	return true
}

// Get returns the values stored under name.
func (f *Fields) Get(name string) ([]string, bool) {
	values, ok := f.values[name]
	return values, ok
}

// First returns the first value stored under name, or "" if there is none.
func (f *Fields) First(name string) string {
	if values := f.values[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Names returns field names in insertion order.
func (f *Fields) Names() []string {
	return append([]string(nil), f.names...)
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	return len(f.names)
}

// Map returns a copy of the fields as a plain map.
func (f *Fields) Map() map[string][]string {
	out := make(map[string][]string, len(f.names))
	for _, name := range f.names {
		out[name] = append([]string{}, f.values[name]...)
	}
	return out
}

// MarshalJSON encodes the fields as an object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range f.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.values[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

// AsMap folds the outcome of Get into a single map. A fetch failure becomes
// {"ERROR": [ErrorMessage]}.
func AsMap(fields *Fields, err error) map[string][]string {
	if err != nil || fields == nil {
		return map[string][]string{ErrorKey: {ErrorMessage}}
	}
	return fields.Map()
}
