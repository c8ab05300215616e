package models

import "slices"

// MaxInstruments is the largest instrument selection allowed
const MaxInstruments = 3

// Configuration holds the optional and required attributes of a prompt
type Configuration struct {
	Mood           *string  `json:"mood"`
	Solfeggio      bool     `json:"solfeggio"`
	Influence      *string  `json:"influenceGenre"`
	Instruments    []string `json:"instruments"`
	Vocal          *string  `json:"vocalStyle"`
	Atmosphere     *string  `json:"atmosphere"`
	Lyrics         string   `json:"lyrics"`
	LyricalConcept string   `json:"lyricalConcept"`
	Structure      string   `json:"structure"`
	BPM            *int     `json:"bpm,omitempty"`
	Key            *string  `json:"key,omitempty"`
}

// Clone returns a deep copy
func (c Configuration) Clone() Configuration {
	out := c
	out.Mood = clonePtr(c.Mood)
	out.Influence = clonePtr(c.Influence)
	out.Vocal = clonePtr(c.Vocal)
	out.Atmosphere = clonePtr(c.Atmosphere)
	out.BPM = clonePtr(c.BPM)
	out.Key = clonePtr(c.Key)
	out.Instruments = slices.Clone(c.Instruments)
	if out.Instruments == nil {
		out.Instruments = []string{}
	}
	return out
}

// HasFoundation reports whether both BPM and key are known
func (c Configuration) HasFoundation() bool {
	return c.BPM != nil && *c.BPM > 0 && c.Key != nil && *c.Key != ""
}

// EffectiveConcept is the lyrical concept unless lyrics override it
func (c Configuration) EffectiveConcept() string {
	if c.Lyrics != "" {
		return ""
	}
	return c.LyricalConcept
}

// Snapshot is a complete remembered wizard configuration
type Snapshot struct {
	Mode     Mode   `json:"promptMode"`
	Subgenre string `json:"subgenre"`
	Configuration
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	s.Configuration = s.Configuration.Clone()
	return s
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value or the zero value
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
