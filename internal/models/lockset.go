package models

import (
	"encoding/json"
	"fmt"
)

// Field identifies a configuration field that can be locked against randomize
type Field uint8

const (
	FieldGenre Field = iota
	FieldMood
	FieldVocal
	FieldAtmosphere
	FieldInfluence
	FieldInstruments
)

var fieldNames = [...]string{
	FieldGenre:       "genre",
	FieldMood:        "mood",
	FieldVocal:       "vocal",
	FieldAtmosphere:  "atmosphere",
	FieldInfluence:   "influence",
	FieldInstruments: "instruments",
}

// AllFields lists the lockable fields in display order
var AllFields = []Field{FieldGenre, FieldMood, FieldVocal, FieldAtmosphere, FieldInfluence, FieldInstruments}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", f)
}

// ParseField parses a lockable field name
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if name == s {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// LockSet is the set of fields skipped by randomize. The zero value is empty.
type LockSet uint8

// NewLockSet builds a set holding fields
func NewLockSet(fields ...Field) LockSet {
	var s LockSet
	for _, f := range fields {
		s = s.With(f)
	}
	return s
}

func (s LockSet) Has(f Field) bool { return s&(1<<f) != 0 }

func (s LockSet) With(f Field) LockSet { return s | 1<<f }

func (s LockSet) Without(f Field) LockSet { return s &^ (1 << f) }

// Toggle adds f when absent and removes it when present
func (s LockSet) Toggle(f Field) LockSet {
	if s.Has(f) {
		return s.Without(f)
	}
	return s.With(f)
}

// Fields returns the members in display order
func (s LockSet) Fields() []Field {
	out := []Field{}
	for _, f := range AllFields {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s LockSet) Len() int { return len(s.Fields()) }

func (s LockSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(AllFields))
	for _, f := range s.Fields() {
		names = append(names, f.String())
	}
	return json.Marshal(names)
}

func (s *LockSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out LockSet
	for _, name := range names {
		f, err := ParseField(name)
		if err != nil {
			return err
		}
		out = out.With(f)
	}
	*s = out
	return nil
}
