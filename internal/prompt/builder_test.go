package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewPromptBuilder("")
	if err != nil {
		t.Fatalf("NewPromptBuilder() returned error: %v", err)
	}
	return b
}

func technoSnapshot() models.Snapshot {
	return models.Snapshot{
		Mode:     models.ModeInstrumental,
		Subgenre: "Techno",
		Configuration: models.Configuration{
			Instruments: []string{},
			Structure:   "[Verse] [Chorus] [Verse] [Chorus] [Bridge] [Chorus] [Outro]",
		},
	}
}

func TestNewPromptBuilderDefaultsModel(t *testing.T) {
	b := newTestBuilder(t)
	if b.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", b.Model(), DefaultModel)
	}
}

func TestInstrumentalMinimal(t *testing.T) {
	b := newTestBuilder(t)
	req, err := b.Instrumental(technoSnapshot())
	if err != nil {
		t.Fatalf("Instrumental() returned error: %v", err)
	}

	if !strings.Contains(req.Prompt, "Techno") {
		t.Error("instrumental prompt does not mention the genre")
	}
	if strings.Contains(req.Prompt, "Vocal") {
		t.Error("instrumental prompt mentions vocals")
	}
	if strings.Contains(req.Prompt, "fusion") || strings.Contains(req.Prompt, "Fusion") {
		t.Error("instrumental prompt has a fusion directive without an influence")
	}
	if !strings.Contains(req.Prompt, "1000 characters") {
		t.Error("instrumental prompt is missing the character limit")
	}
	if req.Temperature == nil || *req.Temperature != 0.95 {
		t.Errorf("Temperature = %v, want 0.95", req.Temperature)
	}
	if req.TopP == nil || *req.TopP != 1 {
		t.Errorf("TopP = %v, want 1", req.TopP)
	}
	if req.OutputSchema != nil {
		t.Error("instrumental request must be free text")
	}
	if req.Operation != OperationInstrumental {
		t.Errorf("Operation = %q", req.Operation)
	}
}

func TestInstrumentalDirectives(t *testing.T) {
	b := newTestBuilder(t)
	snap := technoSnapshot()
	snap.Influence = models.Ptr("Dub")
	snap.Instruments = []string{"Moog Synth", "Drum Machine"}
	snap.Mood = models.Ptr("Dark")
	snap.Solfeggio = true
	snap.BPM = models.Ptr(128)
	snap.Key = models.Ptr("A Minor")

	req, err := b.Instrumental(snap)
	if err != nil {
		t.Fatalf("Instrumental() returned error: %v", err)
	}

	for _, want := range []string{
		"fusion",
		"**Techno**",
		"**Dub**",
		"Moog Synth, Drum Machine",
		"**Dark**",
		"Solfeggio",
		"exactly **128 BPM** in **A Minor**",
		"LUFS",
		"Dolby Atmos",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("instrumental prompt missing %q", want)
		}
	}
}

func TestInstrumentalIgnoresHalfFoundation(t *testing.T) {
	b := newTestBuilder(t)
	snap := technoSnapshot()
	snap.BPM = models.Ptr(128)

	req, err := b.Instrumental(snap)
	if err != nil {
		t.Fatalf("Instrumental() returned error: %v", err)
	}
	if strings.Contains(req.Prompt, "128 BPM") {
		t.Error("BPM without key must not be used")
	}
}

func TestFullSongLyricsOverrideConcept(t *testing.T) {
	b := newTestBuilder(t)
	snap := technoSnapshot()
	snap.Mode = models.ModeFullSong
	snap.Subgenre = "Synthwave"
	snap.Vocal = models.Ptr("Male Vocals")
	snap.Atmosphere = models.Ptr("City Traffic")
	snap.Lyrics = "(Chorus) neon rain on the highway"
	snap.LyricalConcept = "a lighthouse keeper"

	req, err := b.Song(snap)
	if err != nil {
		t.Fatalf("Song() returned error: %v", err)
	}
	if req.Operation != OperationFullSong {
		t.Fatalf("Song() used %q for a full song", req.Operation)
	}
	for _, want := range []string{"Synthwave", "Male Vocals", "City Traffic", "neon rain on the highway", "-12 LUFS", "[Verse] [Chorus]"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("full song prompt missing %q", want)
		}
	}
	if strings.Contains(req.Prompt, "lighthouse") {
		t.Error("lyrical concept must be ignored when lyrics are present")
	}
}

func TestFullSongConceptAndFallback(t *testing.T) {
	b := newTestBuilder(t)
	snap := technoSnapshot()
	snap.Mode = models.ModeFullSong
	snap.Vocal = models.Ptr("Choir")
	snap.LyricalConcept = "a lighthouse keeper"

	req, err := b.FullSong(snap)
	if err != nil {
		t.Fatalf("FullSong() returned error: %v", err)
	}
	if !strings.Contains(req.Prompt, "a lighthouse keeper") {
		t.Error("full song prompt missing the lyrical concept")
	}

	snap.LyricalConcept = ""
	req, err = b.FullSong(snap)
	if err != nil {
		t.Fatalf("FullSong() returned error: %v", err)
	}
	if !strings.Contains(req.Prompt, "Write lyrics that fit the mood") {
		t.Error("full song prompt missing the generated lyrics directive")
	}
}

func TestNoSubgenre(t *testing.T) {
	b := newTestBuilder(t)
	if _, err := b.Instrumental(models.Snapshot{}); !errors.Is(err, ErrNoSubgenre) {
		t.Errorf("Instrumental() error = %v, want ErrNoSubgenre", err)
	}
	if _, err := b.ArtistInspirations(""); !errors.Is(err, ErrNoSubgenre) {
		t.Errorf("ArtistInspirations() error = %v, want ErrNoSubgenre", err)
	}
}

func TestEnhance(t *testing.T) {
	b := newTestBuilder(t)
	req, err := b.Enhance("  sad piano in the rain  ")
	if err != nil {
		t.Fatalf("Enhance() returned error: %v", err)
	}
	if !strings.Contains(req.Prompt, `"sad piano in the rain"`) {
		t.Error("enhance prompt does not quote the trimmed idea")
	}
	if *req.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want 0.8", *req.Temperature)
	}
}

func TestArtistInspirations(t *testing.T) {
	b := newTestBuilder(t)
	req, err := b.ArtistInspirations("Shoegaze")
	if err != nil {
		t.Fatalf("ArtistInspirations() returned error: %v", err)
	}
	if !strings.Contains(req.Prompt, `"Shoegaze"`) || !strings.Contains(req.Prompt, "5 most relevant") {
		t.Errorf("unexpected artist prompt: %s", req.Prompt)
	}
	if req.OutputSchema == nil {
		t.Fatal("artist request has no output schema")
	}
	if _, ok := req.OutputSchema.Schema["properties"].(map[string]any)["artists"]; !ok {
		t.Error("artist schema has no artists property")
	}
}

func TestAnalyzeTrack(t *testing.T) {
	b := newTestBuilder(t)

	req, err := b.AnalyzeTrack("https://example.com/track.mp3", nil)
	if err != nil {
		t.Fatalf("AnalyzeTrack() returned error: %v", err)
	}
	if !strings.Contains(req.Prompt, "https://example.com/track.mp3") {
		t.Error("analysis prompt does not include the URL")
	}
	if req.Audio != nil {
		t.Error("URL analysis must not attach audio")
	}
	required, _ := req.OutputSchema.Schema["required"].([]string)
	if strings.Join(required, ",") != "subgenre,mood,bpm,key,instruments" {
		t.Errorf("required = %v", required)
	}

	audio := &llm.Attachment{MIMEType: "audio/mpeg", Data: []byte{1, 2, 3}}
	req, err = b.AnalyzeTrack("", audio)
	if err != nil {
		t.Fatalf("AnalyzeTrack() returned error: %v", err)
	}
	if req.Audio != audio {
		t.Error("upload analysis must attach the audio")
	}
	if strings.Contains(req.Prompt, "URL") {
		t.Error("upload analysis must not mention a URL")
	}

	if _, err := b.AnalyzeTrack("   ", &llm.Attachment{}); !errors.Is(err, ErrNoAudioSource) {
		t.Errorf("AnalyzeTrack() error = %v, want ErrNoAudioSource", err)
	}
}

func TestVideoTreatment(t *testing.T) {
	b := newTestBuilder(t)
	req, err := b.VideoTreatment("Dark pulsing techno at 128 BPM")
	if err != nil {
		t.Fatalf("VideoTreatment() returned error: %v", err)
	}
	for _, want := range []string{"Dark pulsing techno at 128 BPM", "SCENE 1", "Lighting", "Color Palette", "Pacing"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("treatment prompt missing %q", want)
		}
	}
}

func TestLoaderUnknownTemplate(t *testing.T) {
	l, err := NewPromptLoader()
	if err != nil {
		t.Fatalf("NewPromptLoader() returned error: %v", err)
	}
	if _, err := l.Render("missing", nil); err == nil {
		t.Error("Render() of an unknown template returned no error")
	}
}
