// Package prompt turns wizard snapshots into model requests.
package prompt

import (
	"errors"
	"strings"

	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

const (
	// DefaultModel is used when the builder is given no model
	DefaultModel = "gemini-2.5-flash"
	// CharLimit is the length target given to the model for prompts
	CharLimit = 1000
	// ArtistCount is the number of artist inspirations requested
	ArtistCount = 5

	OperationInstrumental       = "instrumental"
	OperationFullSong           = "full_song"
	OperationEnhance            = "enhance"
	OperationArtistInspirations = "artist_inspirations"
	OperationAnalyzeTrack       = "analyze_track"
	OperationVideoTreatment     = "video_treatment"
)

const (
	generateTemperature = 0.95
	creativeTemperature = 0.8
	defaultTopP         = 1
)

var (
	ErrNoSubgenre    = errors.New("prompt: snapshot has no subgenre")
	ErrNoAudioSource = errors.New("prompt: no url or audio to analyze")
)

var artistSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"artists": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"artists"},
}

var analysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subgenre": map[string]any{"type": "string"},
		"mood":     map[string]any{"type": "string"},
		"bpm":      map[string]any{"type": "integer"},
		"key":      map[string]any{"type": "string"},
		"instruments": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 3,
			"maxItems": 5,
		},
	},
	"required": []string{"subgenre", "mood", "bpm", "key", "instruments"},
}

// Builder assembles generation requests from the embedded templates
type Builder struct {
	loader *Loader
	model  string
}

// NewPromptBuilder creates a new prompt builder for the given model
func NewPromptBuilder(model string) (*Builder, error) {
	loader, err := NewPromptLoader()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &Builder{loader: loader, model: model}, nil
}

// Model returns the model requests are addressed to
func (b *Builder) Model() string {
	return b.model
}

type songData struct {
	CharLimit      int
	Genre          string
	Influence      string
	Instruments    []string
	HasFoundation  bool
	BPM            int
	Key            string
	Mood           string
	Solfeggio      bool
	Vocal          string
	Structure      string
	Atmosphere     string
	Lyrics         string
	LyricalConcept string
}

func newSongData(snap models.Snapshot) songData {
	cfg := snap.Configuration
	return songData{
		CharLimit:      CharLimit,
		Genre:          snap.Subgenre,
		Influence:      models.Deref(cfg.Influence),
		Instruments:    cfg.Instruments,
		HasFoundation:  cfg.HasFoundation(),
		BPM:            models.Deref(cfg.BPM),
		Key:            models.Deref(cfg.Key),
		Mood:           models.Deref(cfg.Mood),
		Solfeggio:      cfg.Solfeggio,
		Vocal:          models.Deref(cfg.Vocal),
		Structure:      cfg.Structure,
		Atmosphere:     models.Deref(cfg.Atmosphere),
		Lyrics:         strings.TrimSpace(cfg.Lyrics),
		LyricalConcept: strings.TrimSpace(cfg.EffectiveConcept()),
	}
}

// Song builds the request for the snapshot's mode
func (b *Builder) Song(snap models.Snapshot) (*llm.GenerationRequest, error) {
	if snap.Mode == models.ModeFullSong {
		return b.FullSong(snap)
	}
	return b.Instrumental(snap)
}

// Instrumental builds the single-paragraph instrumental prompt request
func (b *Builder) Instrumental(snap models.Snapshot) (*llm.GenerationRequest, error) {
	if snap.Subgenre == "" {
		return nil, ErrNoSubgenre
	}
	text, err := b.loader.Render(tmplInstrumental, newSongData(snap))
	if err != nil {
		return nil, err
	}
	return b.request(OperationInstrumental, text, generateTemperature), nil
}

// FullSong builds the structured full song prompt request
func (b *Builder) FullSong(snap models.Snapshot) (*llm.GenerationRequest, error) {
	if snap.Subgenre == "" {
		return nil, ErrNoSubgenre
	}
	text, err := b.loader.Render(tmplFullSong, newSongData(snap))
	if err != nil {
		return nil, err
	}
	return b.request(OperationFullSong, text, generateTemperature), nil
}

// Enhance builds the request that expands a rough idea into a prompt
func (b *Builder) Enhance(idea string) (*llm.GenerationRequest, error) {
	text, err := b.loader.Render(tmplEnhance, struct {
		CharLimit int
		Idea      string
	}{CharLimit: CharLimit, Idea: strings.TrimSpace(idea)})
	if err != nil {
		return nil, err
	}
	return b.request(OperationEnhance, text, creativeTemperature), nil
}

// ArtistInspirations builds the request for the top artists of a genre
func (b *Builder) ArtistInspirations(subgenre string) (*llm.GenerationRequest, error) {
	if subgenre == "" {
		return nil, ErrNoSubgenre
	}
	text, err := b.loader.Render(tmplArtistInspirations, struct {
		Count int
		Genre string
	}{Count: ArtistCount, Genre: subgenre})
	if err != nil {
		return nil, err
	}
	return &llm.GenerationRequest{
		Model:     b.model,
		Prompt:    text,
		Operation: OperationArtistInspirations,
		OutputSchema: &llm.OutputSchema{
			Name:        "artist_inspirations",
			Description: "Most influential artists of a genre",
			Schema:      artistSchema,
		},
	}, nil
}

// AnalyzeTrack builds the analysis request for a URL or an uploaded file
func (b *Builder) AnalyzeTrack(url string, audio *llm.Attachment) (*llm.GenerationRequest, error) {
	url = strings.TrimSpace(url)
	if audio != nil && len(audio.Data) > 0 {
		url = ""
	} else {
		audio = nil
	}
	if url == "" && audio == nil {
		return nil, ErrNoAudioSource
	}
	text, err := b.loader.Render(tmplAnalyzeTrack, struct{ URL string }{URL: url})
	if err != nil {
		return nil, err
	}
	return &llm.GenerationRequest{
		Model:     b.model,
		Prompt:    text,
		Audio:     audio,
		Operation: OperationAnalyzeTrack,
		OutputSchema: &llm.OutputSchema{
			Name:        "track_analysis",
			Description: "Musical analysis of an audio track",
			Schema:      analysisSchema,
		},
	}, nil
}

// VideoTreatment builds the music video treatment request
func (b *Builder) VideoTreatment(songPrompt string) (*llm.GenerationRequest, error) {
	text, err := b.loader.Render(tmplVideoTreatment, struct{ SongPrompt string }{
		SongPrompt: strings.TrimSpace(songPrompt),
	})
	if err != nil {
		return nil, err
	}
	return b.request(OperationVideoTreatment, text, creativeTemperature), nil
}

func (b *Builder) request(operation, text string, temperature float32) *llm.GenerationRequest {
	return &llm.GenerationRequest{
		Model:       b.model,
		Prompt:      text,
		Temperature: llm.Float32(temperature),
		TopP:        llm.Float32(defaultTopP),
		Operation:   operation,
	}
}
