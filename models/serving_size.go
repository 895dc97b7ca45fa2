package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServingSize is the unit the nutrition values of a food are measured against.
type ServingSize string

const (
	Gram       ServingSize = "GRAM"
	Milligram  ServingSize = "MILLIGRAM"
	Kilogram   ServingSize = "KILOGRAM"
	Milliliter ServingSize = "MILLILITER"
	Liter      ServingSize = "LITER"
	Ounce      ServingSize = "OUNCE"
	Cup        ServingSize = "CUP"
	Tablespoon ServingSize = "TABLESPOON"
	Piece      ServingSize = "PIECE"
)

var servingSizes = []ServingSize{
	Gram, Milligram, Kilogram, Milliliter, Liter, Ounce, Cup, Tablespoon, Piece,
}

// ServingSizes lists every accepted unit.
func ServingSizes() []ServingSize {
	out := make([]ServingSize, len(servingSizes))
	copy(out, servingSizes)
	return out
}

// ParseServingSize accepts any casing of a known unit, e.g. "gram" or "GRAM".
func ParseServingSize(s string) (ServingSize, error) {
	u := ServingSize(strings.ToUpper(strings.TrimSpace(s)))
	if u.Valid() {
		return u, nil
	}
	return "", fmt.Errorf("unknown serving size %q", s)
}

func (s ServingSize) Valid() bool {
	for _, v := range servingSizes {
		if s == v {
			return true
		}
	}
	return false
}

func (s ServingSize) String() string { return string(s) }

func (s *ServingSize) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("servingSize must be a string: %w", err)
	}
	v, err := ParseServingSize(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
