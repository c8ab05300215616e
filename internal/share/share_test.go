package share

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSnapshot() models.Snapshot {
	return models.Snapshot{
		Mode:     models.ModeFullSong,
		Subgenre: "Shoegaze",
		Configuration: models.Configuration{
			Mood:           models.Ptr("Dreamy"),
			Solfeggio:      true,
			Influence:      models.Ptr("Dream Pop"),
			Instruments:    []string{"Electric Guitar", "Mellotron"},
			Vocal:          models.Ptr("Whispering"),
			Atmosphere:     models.Ptr("Rainy Day"),
			Lyrics:         "glass & static\n(Chorus) drift",
			LyricalConcept: "ignored while lyrics exist",
			Structure:      "[Verse] [Chorus] [Verse] [Chorus] [Outro]",
			BPM:            models.Ptr(96),
			Key:            models.Ptr("E Major"),
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		snap models.Snapshot
	}{
		{name: "full song every field", snap: fullSnapshot()},
		{
			name: "instrumental minimal",
			snap: models.Snapshot{
				Mode:          models.ModeInstrumental,
				Subgenre:      "Techno",
				Configuration: models.Configuration{Instruments: []string{}},
			},
		},
		{
			name: "empty custom structure",
			snap: models.Snapshot{
				Mode:          models.ModeFullSong,
				Subgenre:      "Bossa Nova",
				Configuration: models.Configuration{Instruments: []string{}, Vocal: models.Ptr("Choir")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Encode(tt.snap)
			require.NoError(t, err)
			assert.NotContains(t, tok, "+")
			assert.NotContains(t, tok, "/")

			got, err := Decode(tok)
			require.NoError(t, err)
			assert.Equal(t, tt.snap, got)
		})
	}
}

func TestEncodeDecode_KeepsInstrumentOrder(t *testing.T) {
	snap := models.Snapshot{
		Mode:     models.ModeInstrumental,
		Subgenre: "Techno",
		Configuration: models.Configuration{
			Mood:        models.Ptr("Dark"),
			Instruments: []string{"Moog Synth", "Drum Machine"},
		},
	}

	tok, err := Encode(snap)
	require.NoError(t, err)
	got, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, []string{"Moog Synth", "Drum Machine"}, got.Instruments)
	assert.Equal(t, "Dark", *got.Mood)
}

func TestDecode_LegacyToken(t *testing.T) {
	// version 0 tokens: padded standard base64 and no version field
	legacy := `{"pm":"Full Song","sg":"Trip Hop","m":null,"sol":false,"ig":null,"ins":["Rhodes Piano"],"vs":"Female Vocals","a":null,"l":"","s":"[Verse] [Chorus]","lc":"night drive"}`
	tok := base64.StdEncoding.EncodeToString([]byte(legacy))

	got, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, models.ModeFullSong, got.Mode)
	assert.Equal(t, "Trip Hop", got.Subgenre)
	assert.Nil(t, got.Mood)
	assert.Equal(t, []string{"Rhodes Piano"}, got.Instruments)
	assert.Equal(t, "Female Vocals", *got.Vocal)
	assert.Equal(t, "night drive", got.LyricalConcept)
}

func TestDecode_Failures(t *testing.T) {
	b64 := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{name: "empty", token: "", err: ErrMalformedToken},
		{name: "not base64", token: "%%%not-base64%%%", err: ErrMalformedToken},
		{name: "not json", token: b64("hello"), err: ErrMalformedToken},
		{name: "unknown mode", token: b64(`{"pm":"Karaoke","sg":"Techno"}`), err: ErrMalformedToken},
		{name: "no subgenre", token: b64(`{"pm":"Instrumental"}`), err: ErrMissingSubgenre},
		{name: "future version", token: b64(`{"v":99,"pm":"Instrumental","sg":"Techno"}`), err: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.token)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEncode_RequiresSubgenreAndMode(t *testing.T) {
	_, err := Encode(models.Snapshot{Mode: models.ModeInstrumental})
	assert.ErrorIs(t, err, ErrMissingSubgenre)

	_, err = Encode(models.Snapshot{Subgenre: "Techno"})
	assert.Error(t, err)
}

func TestURLHelpers(t *testing.T) {
	base, err := url.Parse("https://architect.example.com/app?tab=1")
	require.NoError(t, err)

	tok, err := Encode(fullSnapshot())
	require.NoError(t, err)

	link := URL(base, tok)
	got, err := TokenFromURL(link)
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	clean, err := StripToken(link)
	require.NoError(t, err)
	assert.Equal(t, "https://architect.example.com/app?tab=1", clean)

	_, err = TokenFromURL(clean)
	assert.ErrorIs(t, err, ErrMissingToken)
}
