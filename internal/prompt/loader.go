package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/prompt-architect/pkg/embedded"
)

const (
	tmplInstrumental       = "instrumental"
	tmplFullSong           = "full_song"
	tmplEnhance            = "enhance"
	tmplArtistInspirations = "artist_inspirations"
	tmplAnalyzeTrack       = "analyze_track"
	tmplVideoTreatment     = "video_treatment"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Loader parses the embedded meta-prompt templates
type Loader struct {
	templates map[string]*template.Template
}

// NewPromptLoader parses every embedded template
func NewPromptLoader() (*Loader, error) {
	sources := map[string][]byte{
		tmplInstrumental:       embedded.InstrumentalPromptTmpl,
		tmplFullSong:           embedded.FullSongPromptTmpl,
		tmplEnhance:            embedded.EnhancePromptTmpl,
		tmplArtistInspirations: embedded.ArtistInspirationsPromptTmpl,
		tmplAnalyzeTrack:       embedded.AnalyzeTrackPromptTmpl,
		tmplVideoTreatment:     embedded.VideoTreatmentPromptTmpl,
	}

	l := &Loader{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		l.templates[name] = t
	}
	return l, nil
}

// Render executes a named template and trims the result
func (l *Loader) Render(name string, data any) (string, error) {
	t, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
