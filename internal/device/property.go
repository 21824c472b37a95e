package device

// PropertyType enumerates the wire types a property value may carry.
type PropertyType string

const (
	TypeUint8  PropertyType = "uint8"
	TypeUint16 PropertyType = "uint16"
	TypeUint32 PropertyType = "uint32"
	TypeFloat  PropertyType = "float"
	TypeBool   PropertyType = "boolean"
	TypeString PropertyType = "string"
)

// Property is a single typed device attribute.
//
// Settings are operator-tunable values fixed at spawn; states are live
// readings updated by device behaviour. Both share this schema.
type Property struct {
	Name        string       `json:"name"`
	Type        PropertyType `json:"type"`
	Value       any          `json:"value"`
	Description string       `json:"description,omitempty"`
}

// PropertyList is an ordered collection of properties.
//
// Order is preserved on the wire; Save replaces by name so repeated
// updates never grow the list.
type PropertyList []Property

// Get returns the named property and whether it exists. The first match
// wins.
func (l PropertyList) Get(name string) (Property, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Save replaces the named property, or appends it when absent.
func (l *PropertyList) Save(p Property) {
	for i := range *l {
		if (*l)[i].Name == p.Name {
			(*l)[i] = p
			return
		}
	}
	*l = append(*l, p)
}

// Int returns the named property's value as an int64.
//
// JSON round-trips turn numbers into float64, so both integer and float
// representations are accepted.
func (l PropertyList) Int(name string) (int64, bool) {
	p, ok := l.Get(name)
	if !ok {
		return 0, false
	}

	switch v := p.Value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Float returns the named property's value as a float64.
func (l PropertyList) Float(name string) (float64, bool) {
	p, ok := l.Get(name)
	if !ok {
		return 0, false
	}

	switch v := p.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the named property's value as a string.
func (l PropertyList) String(name string) (string, bool) {
	p, ok := l.Get(name)
	if !ok {
		return "", false
	}

	v, ok := p.Value.(string)
	return v, ok
}

// clone returns an independent copy so snapshots never alias live state.
func (l PropertyList) clone() PropertyList {
	if l == nil {
		return nil
	}
	out := make(PropertyList, len(l))
	copy(out, l)
	return out
}
