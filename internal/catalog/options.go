package catalog

import (
	"encoding/json"
	"fmt"
)

type OptionKind string

const (
	OptionKindNamed  OptionKind = "named"
	OptionKindObject OptionKind = "object"
)

// OptionRef is the normalized form of a customization option. The upstream
// API sends these either as plain names or as option objects with an id and
// swatch image; normalization happens once at the decode boundary so key
// computation and equality never re-inspect the raw shape.
type OptionRef struct {
	Kind        OptionKind `json:"kind"`
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	SwatchImage string     `json:"swatch_image,omitempty"`
}

// Named builds a plain-string option reference.
func Named(name string) OptionRef {
	return OptionRef{Kind: OptionKindNamed, Name: name}
}

// IsZero reports whether the option is absent.
func (o OptionRef) IsZero() bool {
	return o.Kind == ""
}

// Identity returns the value used for cart line keys and equality: the id for
// object options, the name for plain ones.
func (o OptionRef) Identity() string {
	if o.Kind == OptionKindObject && o.ID != "" {
		return o.ID
	}
	return o.Name
}

// Equivalent reports whether two options refer to the same choice.
func (o OptionRef) Equivalent(other OptionRef) bool {
	if o.IsZero() != other.IsZero() {
		return false
	}
	if o.IsZero() {
		return true
	}
	return o.Identity() == other.Identity()
}

type optionObject struct {
	Kind        OptionKind `json:"kind"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	SwatchImage string     `json:"swatch_image"`
}

// UnmarshalJSON accepts both upstream shapes, "Natural Oak" and
// {"id":"...","name":"...","swatch_image":"..."}, plus the already-normalized
// form written to guest cart snapshots.
func (o *OptionRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*o = Named(name)
		return nil
	}

	var obj optionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or object: %w", err)
	}
	kind := obj.Kind
	if kind == "" {
		kind = OptionKindObject
	}
	*o = OptionRef{
		Kind:        kind,
		ID:          obj.ID,
		Name:        obj.Name,
		SwatchImage: obj.SwatchImage,
	}
	return nil
}

// OptionList tolerates the upstream mixing plain names and option objects in
// the same array.
type OptionList []OptionRef
