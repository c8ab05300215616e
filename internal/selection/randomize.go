package selection

import (
	"slices"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

// randomize redraws every unlocked field of s in place. Vocal and atmosphere
// are only drawn in full song mode.
func (m *Machine) randomize(s *State) {
	c := m.catalog
	locks := s.Locks

	if !locks.Has(models.FieldGenre) {
		var avoid string
		if locks.Has(models.FieldInfluence) && s.Config.Influence != nil {
			avoid = *s.Config.Influence
		}
		s.Category, s.Subgenre = m.drawGenre(avoid)
	}
	if !locks.Has(models.FieldMood) {
		s.Config.Mood = models.Ptr(pick(m, c.Moods))
	}
	if !locks.Has(models.FieldInfluence) {
		s.Config.Influence = models.Ptr(pick(m, c.InfluenceOptions(s.Subgenre)))
	}
	if !locks.Has(models.FieldInstruments) {
		shuffled := slices.Clone(c.Instruments)
		m.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		n := 1 + m.rng.IntN(models.MaxInstruments)
		s.Config.Instruments = shuffled[:n:n]
	}

	if s.Mode == models.ModeFullSong {
		if !locks.Has(models.FieldVocal) {
			s.Config.Vocal = models.Ptr(pick(m, c.VocalStyles))
		}
		if !locks.Has(models.FieldAtmosphere) {
			s.Config.Atmosphere = models.Ptr(pick(m, c.Atmospheres))
		}
	}
}

// drawGenre picks a random category, then a random member of it. A member
// equal to avoid is never returned.
func (m *Machine) drawGenre(avoid string) (string, string) {
	cats := slices.Clone(m.catalog.Categories)
	for len(cats) > 0 {
		i := m.rng.IntN(len(cats))
		members := slices.DeleteFunc(slices.Clone(cats[i].Subgenres), func(s string) bool { return s == avoid })
		if len(members) > 0 {
			return cats[i].Name, pick(m, members)
		}
		cats = slices.Delete(cats, i, i+1)
	}
	return "", ""
}

func pick(m *Machine, items []string) string {
	return items[m.rng.IntN(len(items))]
}
