package selection

import (
	"testing"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomize_AllLockedIsNoOp(t *testing.T) {
	m := newTestMachine(3)
	s := configured(t, m, models.ModeInstrumental)
	s = apply(t, m, s,
		SetMood{Mood: models.Ptr("Dark")},
		ToggleInstrument{Name: "Moog Synth"},
		ToggleLock{Field: models.FieldGenre},
		ToggleLock{Field: models.FieldMood},
		ToggleLock{Field: models.FieldInfluence},
		ToggleLock{Field: models.FieldInstruments},
	)

	after := apply(t, m, s, Randomize{})
	assert.Equal(t, s, after)
}

func TestRandomize_UnlockedFieldsChange(t *testing.T) {
	m := newTestMachine(11)
	c := m.Catalog()
	s := configured(t, m, models.ModeInstrumental)

	for range 50 {
		s = apply(t, m, s, Randomize{})

		cat, ok := c.Category(s.Category)
		require.True(t, ok)
		assert.True(t, cat.Has(s.Subgenre))

		require.NotNil(t, s.Config.Mood)
		assert.Contains(t, c.Moods, *s.Config.Mood)

		require.NotNil(t, s.Config.Influence)
		assert.NotEqual(t, s.Subgenre, *s.Config.Influence)

		assert.GreaterOrEqual(t, len(s.Config.Instruments), 1)
		assert.LessOrEqual(t, len(s.Config.Instruments), models.MaxInstruments)
		assert.False(t, hasDuplicates(s.Config.Instruments))

		// instrumental mode never draws full song fields
		assert.Nil(t, s.Config.Vocal)
		assert.Nil(t, s.Config.Atmosphere)
	}
}

func TestRandomize_FullSongDrawsVocalAndAtmosphere(t *testing.T) {
	m := newTestMachine(5)
	s := configured(t, m, models.ModeFullSong)

	s = apply(t, m, s, Randomize{})
	require.NotNil(t, s.Config.Vocal)
	require.NotNil(t, s.Config.Atmosphere)
	assert.Contains(t, m.Catalog().VocalStyles, *s.Config.Vocal)
	assert.NoError(t, s.Ready())

	s = apply(t, m, s, ToggleLock{Field: models.FieldVocal})
	vocal := *s.Config.Vocal
	for range 20 {
		s = apply(t, m, s, Randomize{})
		assert.Equal(t, vocal, *s.Config.Vocal)
	}
}

func TestRandomize_LockedFieldsPersist(t *testing.T) {
	m := newTestMachine(9)
	s := configured(t, m, models.ModeInstrumental)
	s = apply(t, m, s,
		ToggleInstrument{Name: "Piano"},
		ToggleLock{Field: models.FieldGenre},
		ToggleLock{Field: models.FieldInstruments},
	)

	for range 20 {
		s = apply(t, m, s, Randomize{})
		assert.Equal(t, "Techno", s.Subgenre)
		assert.Equal(t, "Electronic", s.Category)
		assert.Equal(t, []string{"Piano"}, s.Config.Instruments)
	}
}

func TestRandomize_GenreAvoidsLockedInfluence(t *testing.T) {
	m := newTestMachine(21)
	s := configured(t, m, models.ModeInstrumental)
	s = apply(t, m, s,
		SetInfluence{Genre: models.Ptr("Reggae")},
		ToggleLock{Field: models.FieldInfluence},
	)

	for range 100 {
		s = apply(t, m, s, Randomize{})
		assert.NotEqual(t, "Reggae", s.Subgenre)
		assert.Equal(t, "Reggae", *s.Config.Influence)
	}
}

func TestRandomize_Deterministic(t *testing.T) {
	a := newTestMachine(42)
	b := newTestMachine(42)

	sa := apply(t, a, configured(t, a, models.ModeFullSong), Randomize{})
	sb := apply(t, b, configured(t, b, models.ModeFullSong), Randomize{})
	assert.Equal(t, sa, sb)
}
