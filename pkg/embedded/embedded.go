package embedded

import (
	_ "embed"
)

// Option catalog (genres, moods, vocals, atmospheres, instruments, structures)
//
//go:embed data/catalog.yaml
var CatalogYAML []byte

// Meta-prompt templates
//
//go:embed data/prompts/instrumental.tmpl
var InstrumentalPromptTmpl []byte

//go:embed data/prompts/full_song.tmpl
var FullSongPromptTmpl []byte

//go:embed data/prompts/enhance.tmpl
var EnhancePromptTmpl []byte

//go:embed data/prompts/artist_inspirations.tmpl
var ArtistInspirationsPromptTmpl []byte

//go:embed data/prompts/analyze_track.tmpl
var AnalyzeTrackPromptTmpl []byte

//go:embed data/prompts/video_treatment.tmpl
var VideoTreatmentPromptTmpl []byte
