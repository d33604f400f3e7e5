// Package character defines the supported character personas, the attributes
// each persona requires, and the phrases used to describe them in prompts.
package character

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type identifies the kind of character presenting the video.
type Type string

const (
	// TypeBaby is a talking baby.
	TypeBaby Type = "baby"
	// TypeAnimal is a talking animal.
	TypeAnimal Type = "animal"
	// TypeHistorical is a historical figure.
	TypeHistorical Type = "historical-figure"
)

// Attribute names used by the character forms.
const (
	AttrEthnicity   = "ethnicity"
	AttrBabyHair    = "babyHair"
	AttrSpecies     = "species"
	AttrTrait       = "trait"
	AttrEra         = "era"
	AttrNationality = "nationality"
)

// ErrUnknownType is returned when a character type is not supported.
var ErrUnknownType = errors.New("character: unknown character type")

// Types returns every supported character type.
func Types() []Type {
	return []Type{TypeBaby, TypeAnimal, TypeHistorical}
}

// ParseType converts user input into a Type. The short form "historical"
// is accepted as an alias for the historical figure persona.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeBaby):
		return TypeBaby, nil
	case string(TypeAnimal):
		return TypeAnimal, nil
	case string(TypeHistorical), "historical":
		return TypeHistorical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// IsValid returns true if the type is one of the supported personas.
func (t Type) IsValid() bool {
	switch t {
	case TypeBaby, TypeAnimal, TypeHistorical:
		return true
	default:
		return false
	}
}

// RequiredAttributes returns the attribute names a persona must provide.
func (t Type) RequiredAttributes() []string {
	switch t {
	case TypeBaby:
		return []string{AttrEthnicity, AttrBabyHair}
	case TypeAnimal:
		return []string{AttrSpecies, AttrTrait}
	case TypeHistorical:
		return []string{AttrEra, AttrNationality}
	default:
		return nil
	}
}

// Attributes maps attribute names to their values.
type Attributes map[string]string

// Clone returns a copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Normalize trims and title-cases every value so "dog" and " Dog " both
// become "Dog". Keys are left untouched.
func Normalize(attrs Attributes) Attributes {
	c := cases.Title(language.English)
	out := make(Attributes, len(attrs))
	for k, v := range attrs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[k] = c.String(strings.ToLower(v))
	}
	return out
}

// Describe returns a short noun phrase for the persona, for example
// "a Playful Dog" or "a European person from the Medieval era".
func Describe(t Type, attrs Attributes) string {
	switch t {
	case TypeBaby:
		return fmt.Sprintf("a %s baby with %s hair", attrs[AttrEthnicity], attrs[AttrBabyHair])
	case TypeAnimal:
		return fmt.Sprintf("a %s %s", attrs[AttrTrait], attrs[AttrSpecies])
	case TypeHistorical:
		return fmt.Sprintf("a %s person from the %s era", attrs[AttrNationality], attrs[AttrEra])
	default:
		return "an interesting character"
	}
}

// Label returns the short persona name used in video prompts.
func Label(t Type) string {
	if t == TypeHistorical {
		return "historical figure"
	}
	return string(t)
}
