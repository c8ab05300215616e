package studio

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/history"
	"github.com/Conceptual-Machines/prompt-architect/internal/kvstore"
	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
	"github.com/Conceptual-Machines/prompt-architect/internal/services"
)

// mockGenerator implements Generator with overridable function fields
type mockGenerator struct {
	generateFunc func(ctx context.Context, snap models.Snapshot) (string, error)
	enhanceFunc  func(ctx context.Context, idea string) (string, error)
	videoFunc    func(ctx context.Context, songPrompt string) (string, error)
	artistsFunc  func(ctx context.Context, subgenre string) []string
	analyzeFunc  func(ctx context.Context, url string, audio *llm.Attachment) (*models.AnalysisResult, error)

	calls atomic.Int32
}

func (m *mockGenerator) GenerateSong(ctx context.Context, snap models.Snapshot) (string, error) {
	m.calls.Add(1)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, snap)
	}
	return "generated " + snap.Subgenre, nil
}

func (m *mockGenerator) Enhance(ctx context.Context, idea string) (string, error) {
	m.calls.Add(1)
	if m.enhanceFunc != nil {
		return m.enhanceFunc(ctx, idea)
	}
	return "enhanced " + idea, nil
}

func (m *mockGenerator) VideoTreatment(ctx context.Context, songPrompt string) (string, error) {
	m.calls.Add(1)
	if m.videoFunc != nil {
		return m.videoFunc(ctx, songPrompt)
	}
	return "video for " + songPrompt, nil
}

func (m *mockGenerator) ArtistInspirations(ctx context.Context, subgenre string) []string {
	if m.artistsFunc != nil {
		return m.artistsFunc(ctx, subgenre)
	}
	return []string{subgenre + " Artist"}
}

func (m *mockGenerator) AnalyzeTrack(ctx context.Context, url string, audio *llm.Attachment) (*models.AnalysisResult, error) {
	m.calls.Add(1)
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, url, audio)
	}
	return &models.AnalysisResult{Subgenre: "Techno", Mood: "Dark", BPM: 130, Key: "A minor", Instruments: []string{"Drum Machine"}}, nil
}

func newTestSession(t *testing.T, gen Generator) *Session {
	t.Helper()
	hist := history.New(kvstore.NewMemory())
	return NewSession("test-session", selection.NewMachine(catalog.Default(), nil), gen, hist, nil, 0)
}

func dispatch(t *testing.T, s *Session, actions ...selection.Action) View {
	t.Helper()
	var v View
	for _, a := range actions {
		var err error
		v, err = s.Dispatch(context.Background(), a)
		require.NoError(t, err, "action %T", a)
	}
	return v
}

func configureTechno(t *testing.T, s *Session) View {
	t.Helper()
	v := dispatch(t, s,
		selection.ChooseMode{Mode: models.ModeInstrumental},
		selection.ChooseCategory{Name: "Electronic"},
		selection.ChooseSubgenre{Name: "Techno"},
	)
	s.Wait()
	return v
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var verr *selection.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Message
}

func TestSession_GenerateRequiresCompleteSelection(t *testing.T) {
	gen := &mockGenerator{}
	s := newTestSession(t, gen)
	dispatch(t, s, selection.ChooseMode{Mode: models.ModeInstrumental})

	v, err := s.Generate(context.Background())
	assert.Equal(t, selection.MsgIncompleteSelection, validationMessage(t, err))
	assert.Equal(t, int32(0), gen.calls.Load())
	assert.Empty(t, v.Prompt)
	assert.False(t, v.Ready)
}

func TestSession_GenerateFullSongRequiresVocal(t *testing.T) {
	gen := &mockGenerator{}
	s := newTestSession(t, gen)
	dispatch(t, s,
		selection.ChooseMode{Mode: models.ModeFullSong},
		selection.ChooseCategory{Name: "Electronic"},
		selection.ChooseSubgenre{Name: "Techno"},
	)
	s.Wait()

	_, err := s.Generate(context.Background())
	assert.Equal(t, selection.MsgVocalRequired, validationMessage(t, err))
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestSession_GenerateStoresPromptAndHistory(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	configureTechno(t, s)

	v, err := s.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "generated Techno", v.Prompt)
	require.Len(t, v.History, 1)
	assert.Equal(t, "generated Techno", v.History[0].Prompt)
	assert.Equal(t, "Techno", v.History[0].Subgenre)
	assert.Empty(t, v.Loading)
}

func TestSession_GenerateFailureKeepsPriorPrompt(t *testing.T) {
	gen := &mockGenerator{}
	s := newTestSession(t, gen)
	configureTechno(t, s)

	_, err := s.Generate(context.Background())
	require.NoError(t, err)

	gen.generateFunc = func(ctx context.Context, snap models.Snapshot) (string, error) {
		return "", &services.GenerationError{Operation: "instrumental", Message: services.MsgGenerationFailed, Err: errors.New("boom")}
	}
	v, err := s.Generate(context.Background())
	require.ErrorIs(t, err, services.ErrGeneration)
	assert.Equal(t, "generated Techno", v.Prompt)
	assert.Len(t, v.History, 1)
	assert.Empty(t, v.Loading)
}

func TestSession_GenerateRejectsDuplicateSubmission(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, snap models.Snapshot) (string, error) {
			close(started)
			<-release
			return "slow prompt", nil
		},
	}
	s := newTestSession(t, gen)
	configureTechno(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		done <- err
	}()
	<-started

	v, err := s.Generate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, []Task{TaskGenerate}, v.Loading)

	// other request kinds are not blocked
	_, err = s.Enhance(context.Background(), "a rainy city")
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "slow prompt", s.View().Prompt)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestSession_ArtistsLastWriteWins(t *testing.T) {
	gates := map[string]chan struct{}{
		"Techno":     make(chan struct{}),
		"Acid House": make(chan struct{}),
	}
	gen := &mockGenerator{
		artistsFunc: func(ctx context.Context, subgenre string) []string {
			<-gates[subgenre]
			return []string{subgenre + " Artist"}
		},
	}
	s := newTestSession(t, gen)
	v := dispatch(t, s,
		selection.ChooseMode{Mode: models.ModeInstrumental},
		selection.ChooseCategory{Name: "Electronic"},
		selection.ChooseSubgenre{Name: "Techno"},
	)
	assert.True(t, v.ArtistsLoading)

	v = dispatch(t, s, selection.Back{}, selection.ChooseSubgenre{Name: "Acid House"})
	assert.True(t, v.ArtistsLoading)
	assert.Empty(t, v.Artists)

	// newer lookup finishes first, then the stale one
	close(gates["Acid House"])
	close(gates["Techno"])
	s.Wait()

	v = s.View()
	assert.Equal(t, []string{"Acid House Artist"}, v.Artists)
	assert.False(t, v.ArtistsLoading)
}

func TestSession_ClearingSubgenreEmptiesArtists(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	v := configureTechno(t, s)
	assert.Empty(t, v.Artists)
	assert.Equal(t, []string{"Techno Artist"}, s.View().Artists)

	v = dispatch(t, s, selection.BackToCategories{})
	s.Wait()
	assert.Empty(t, v.Artists)
	assert.Empty(t, s.View().Artists)
	assert.False(t, s.View().ArtistsLoading)
}

func TestSession_DispatchErrorKeepsState(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	before := configureTechno(t, s)

	v, err := s.Dispatch(context.Background(), selection.ChooseCategory{Name: "Nope"})
	require.Error(t, err)
	assert.Equal(t, before.State, v.State)
}

func TestSession_Enhance(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})

	_, err := s.Enhance(context.Background(), "   ")
	assert.Equal(t, MsgEmptyIdea, validationMessage(t, err))

	v, err := s.Enhance(context.Background(), " neon rain ")
	require.NoError(t, err)
	assert.Equal(t, "enhanced neon rain", v.Enhanced)
	assert.Empty(t, v.History)
}

func mp3Bytes() []byte {
	data := []byte("ID3\x04\x00\x00\x00\x00\x00\x00")
	return append(data, bytes.Repeat([]byte{0}, 256)...)
}

func TestSession_AnalyzeValidation(t *testing.T) {
	gen := &mockGenerator{}
	hist := history.New(kvstore.NewMemory())
	s := NewSession("small", selection.NewMachine(catalog.Default(), nil), gen, hist, nil, 1<<20)

	tests := []struct {
		name string
		src  AudioSource
		msg  string
	}{
		{name: "no source", src: AudioSource{URL: "  "}, msg: MsgNoAudioSource},
		{name: "not audio", src: AudioSource{Data: []byte("%PDF-1.4 not a song")}, msg: MsgNotAudio},
		{name: "too large", src: AudioSource{Data: make([]byte, 2<<20)}, msg: "File is too large. Maximum size is 1MB."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Analyze(context.Background(), tt.src)
			assert.Equal(t, tt.msg, validationMessage(t, err))
		})
	}
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestSession_AnalyzeUploadPrefersAudio(t *testing.T) {
	var gotURL string
	var gotAudio *llm.Attachment
	gen := &mockGenerator{
		analyzeFunc: func(ctx context.Context, url string, audio *llm.Attachment) (*models.AnalysisResult, error) {
			gotURL, gotAudio = url, audio
			return &models.AnalysisResult{Subgenre: "Techno", Instruments: []string{}}, nil
		},
	}
	s := newTestSession(t, gen)

	v, err := s.Analyze(context.Background(), AudioSource{URL: "https://example.com/track", Data: mp3Bytes()})
	require.NoError(t, err)
	require.NotNil(t, gotAudio)
	assert.Equal(t, "audio/mpeg", gotAudio.MIMEType)
	assert.Equal(t, "https://example.com/track", gotURL)
	require.NotNil(t, v.Analysis)
	assert.Equal(t, "Techno", v.Analysis.Subgenre)
}

func TestSession_UseAnalysis(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})

	_, err := s.UseAnalysis(context.Background(), models.ModeInstrumental)
	assert.Equal(t, MsgNoAnalysis, validationMessage(t, err))

	_, err = s.Analyze(context.Background(), AudioSource{URL: "https://example.com/track"})
	require.NoError(t, err)

	v, err := s.UseAnalysis(context.Background(), models.ModeInstrumental)
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, selection.StepConfigure, v.Step)
	assert.Equal(t, "Techno", v.State.Subgenre)
	assert.Equal(t, "Dark", models.Deref(v.State.Config.Mood))
	assert.Equal(t, 130, models.Deref(v.State.Config.BPM))
	assert.Equal(t, []string{"Drum Machine"}, v.State.Config.Instruments)
	assert.Equal(t, []string{"Techno Artist"}, s.View().Artists)
}

func TestSession_VideoTreatmentDefaultsToLastPrompt(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})

	_, err := s.VideoTreatment(context.Background(), "")
	assert.Equal(t, MsgNoPromptForVideo, validationMessage(t, err))

	configureTechno(t, s)
	_, err = s.Generate(context.Background())
	require.NoError(t, err)

	v, err := s.VideoTreatment(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "video for generated Techno", v.Treatment)

	v, err = s.VideoTreatment(context.Background(), "explicit prompt")
	require.NoError(t, err)
	assert.Equal(t, "video for explicit prompt", v.Treatment)
}

func TestSession_ShareAndRestore(t *testing.T) {
	base, err := url.Parse("https://architect.example.com/")
	require.NoError(t, err)

	src := newTestSession(t, &mockGenerator{})
	_, err = src.Share(base)
	assert.Equal(t, selection.MsgIncompleteSelection, validationMessage(t, err))

	configureTechno(t, src)
	dispatch(t, src,
		selection.SetMood{Mood: models.Ptr("Dark")},
		selection.ToggleInstrument{Name: "Moog Synth"},
		selection.ToggleLock{Field: models.FieldMood},
	)
	link, err := src.Share(base)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	tok := u.Query().Get("s")
	require.NotEmpty(t, tok)

	dst := newTestSession(t, &mockGenerator{})
	v, ok := dst.RestoreShare(context.Background(), tok)
	dst.Wait()
	require.True(t, ok)
	assert.Equal(t, "Techno", v.State.Subgenre)
	assert.Equal(t, "Electronic", v.State.Category)
	assert.Equal(t, "Dark", models.Deref(v.State.Config.Mood))
	assert.Equal(t, []string{"Moog Synth"}, v.State.Config.Instruments)
	assert.Zero(t, v.State.Locks)
}

func TestSession_RestoreFailureLeavesStateUntouched(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	before := configureTechno(t, s)

	v, ok := s.RestoreShare(context.Background(), "%%%not-base64")
	assert.False(t, ok)
	assert.Equal(t, before.State, v.State)

	v, ok = s.ReuseHistory(context.Background(), "missing")
	assert.False(t, ok)
	assert.Equal(t, before.State, v.State)
}

func TestSession_ReuseHistory(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	configureTechno(t, s)
	dispatch(t, s, selection.SetMood{Mood: models.Ptr("Euphoric")})
	v, err := s.Generate(context.Background())
	require.NoError(t, err)
	id := v.History[0].ID

	dispatch(t, s, selection.ResetMode{})
	s.Wait()

	v, ok := s.ReuseHistory(context.Background(), id)
	s.Wait()
	require.True(t, ok)
	assert.Equal(t, selection.StepConfigure, v.Step)
	assert.Equal(t, "Euphoric", models.Deref(v.State.Config.Mood))
}

func TestSession_ClearHistory(t *testing.T) {
	store := kvstore.NewMemory()
	hist := history.New(store)
	s := NewSession("clear", selection.NewMachine(catalog.Default(), nil), &mockGenerator{}, hist, nil, 0)
	configureTechno(t, s)
	_, err := s.Generate(context.Background())
	require.NoError(t, err)

	v := s.ClearHistory(context.Background())
	assert.Empty(t, v.History)

	raw, ok, err := store.Get(context.Background(), history.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	s := newTestSession(t, &mockGenerator{})
	configureTechno(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Dispatch(context.Background(), selection.Randomize{})
			_ = s.View()
		}()
	}
	wg.Wait()
	s.Wait()

	v := s.View()
	assert.Equal(t, selection.StepConfigure, v.Step)
	assert.LessOrEqual(t, len(v.State.Config.Instruments), models.MaxInstruments)
}

func TestRegistry_SessionLifecycle(t *testing.T) {
	store := kvstore.NewMemory()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(Config{
		Catalog:     catalog.Default(),
		Generator:   &mockGenerator{},
		Store:       store,
		IdleTimeout: time.Hour,
		Now:         func() time.Time { return now },
	})

	a := reg.Session(context.Background(), "alpha")
	assert.Same(t, a, reg.Session(context.Background(), "alpha"))
	b := reg.Session(context.Background(), "beta")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())

	configureTechno(t, a)
	_, err := a.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b.History())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, reg.Sweep())
	assert.Equal(t, 0, reg.Len())

	// history survives eviction under the session namespace
	again := reg.Session(context.Background(), "alpha")
	assert.NotSame(t, a, again)
	require.Len(t, again.History(), 1)
	assert.Equal(t, "generated Techno", again.History()[0].Prompt)
	assert.Equal(t, selection.StepNoMode, again.View().Step)
}
