package models

import (
	"encoding/json"
	"fmt"
)

// Mode selects which wizard flow is active
type Mode int

const (
	ModeNone Mode = iota
	ModeInstrumental
	ModeFullSong
	ModeMagicWand
	ModeAnalyzeTrack
	ModeVideoTreatment
)

var modeNames = map[Mode]string{
	ModeInstrumental:   "Instrumental",
	ModeFullSong:       "Full Song",
	ModeMagicWand:      "Magic Wand",
	ModeAnalyzeTrack:   "Analyze Track",
	ModeVideoTreatment: "Video Treatment",
}

// ParseMode parses the wire name of a mode
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return ""
}

// IsArchitect reports whether the mode walks the category/subgenre wizard
func (m Mode) IsArchitect() bool {
	return m == ModeInstrumental || m == ModeFullSong
}

// MarshalJSON encodes the wire name, ModeNone as null
func (m Mode) MarshalJSON() ([]byte, error) {
	if m == ModeNone {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a wire name, null as ModeNone
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*m = ModeNone
		return nil
	}
	parsed, err := ParseMode(*s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
