package exporter

// NameSet is the catalog whitelist keyed by canonical name.
type NameSet map[string]struct{}

// NewNameSet builds a whitelist from canonical names.
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is whitelisted.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Flattened maps canonical field name to its raw, pre-mapping value.
type Flattened map[string]Scalar

// Flatten filters a status document through the whitelist and erases one level of nesting.
// A nested mapping is only visited when its parent name is whitelisted; nested fields are
// then addressed by their own canonical name. Colliding canonical names keep the value
// seen last in document order.
// Params: doc raw status document; names catalog whitelist.
// Returns: flattened metric set containing whitelisted names only.
func Flatten(doc Document, names NameSet) Flattened {
	flat := make(Flattened, len(names))

	for _, field := range doc {
		name := Canonicalize(field.Name)
		if !names.Has(name) {
			continue
		}

		switch value := field.Value.(type) {
		case Nested:
			for _, sub := range value {
				subName := Canonicalize(sub.Name)
				if !names.Has(subName) {
					continue
				}
				flat[subName] = sub.Value
			}
		case Scalar:
			flat[name] = value
		}
	}

	return flat
}
