package studio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Conceptual-Machines/prompt-architect/internal/history"
	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/metrics"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
	"github.com/Conceptual-Machines/prompt-architect/internal/share"
)

// User-facing validation messages
const (
	MsgEmptyIdea         = "Please enter a basic prompt idea."
	MsgNoAudioSource     = "Please provide a URL or upload an audio file."
	MsgNotAudio          = "The uploaded file is not an audio file."
	MsgNoAnalysis        = "Please analyze a track first."
	MsgNoPromptForVideo  = "Please generate a song prompt first."
	msgFileTooLargeShape = "File is too large. Maximum size is %dMB."
)

// FileTooLarge is the validation error for an upload above maxBytes
func FileTooLarge(maxBytes int64) error {
	return &selection.ValidationError{Message: fmt.Sprintf(msgFileTooLargeShape, maxBytes>>20)}
}

// MaxUploadBytes is the default audio upload limit
const MaxUploadBytes = 14 << 20

// Restore sources reported to metrics
const (
	RestoreSourceShare   = "share"
	RestoreSourceHistory = "history"
)

// ErrBusy rejects a request while the same kind of request is in flight
var ErrBusy = errors.New("studio: request already in progress")

// Task names an outbound request kind guarded by its own loading flag
type Task string

const (
	TaskGenerate Task = "generate"
	TaskEnhance  Task = "enhance"
	TaskAnalyze  Task = "analyze"
	TaskVideo    Task = "video_treatment"
)

// Generator performs the model calls a session needs
type Generator interface {
	GenerateSong(ctx context.Context, snap models.Snapshot) (string, error)
	Enhance(ctx context.Context, idea string) (string, error)
	VideoTreatment(ctx context.Context, songPrompt string) (string, error)
	ArtistInspirations(ctx context.Context, subgenre string) []string
	AnalyzeTrack(ctx context.Context, url string, audio *llm.Attachment) (*models.AnalysisResult, error)
}

// AudioSource is either a track URL or uploaded audio bytes
type AudioSource struct {
	URL  string
	Data []byte
}

// View is a consistent copy of a session for rendering
type View struct {
	State          selection.State        `json:"state"`
	Step           selection.Step         `json:"step"`
	Ready          bool                   `json:"ready"`
	ReadyMessage   string                 `json:"readyMessage,omitempty"`
	Prompt         string                 `json:"prompt"`
	Enhanced       string                 `json:"enhanced"`
	Treatment      string                 `json:"videoTreatment"`
	Analysis       *models.AnalysisResult `json:"analysis,omitempty"`
	Artists        []string               `json:"artists"`
	ArtistsLoading bool                   `json:"artistsLoading"`
	Loading        []Task                 `json:"loading"`
	History        []models.HistoryEntry  `json:"history"`
}

// Session owns the wizard state of one visitor. All mutation happens under
// mu; model calls run outside it.
type Session struct {
	id        string
	machine   *selection.Machine
	generator Generator
	history   *history.Store
	recorder  *metrics.Recorder
	maxUpload int64

	mu        sync.Mutex
	state     selection.State
	prompt    string
	enhanced  string
	treatment string
	analysis  *models.AnalysisResult
	loading   map[Task]bool
	lastSeen  time.Time

	artists        []string
	artistSeq      uint64
	artistsLoading bool
	fetches        sync.WaitGroup
}

// NewSession creates a session at the initial state. hist must already be loaded.
func NewSession(id string, machine *selection.Machine, gen Generator, hist *history.Store, recorder *metrics.Recorder, maxUpload int64) *Session {
	if maxUpload <= 0 {
		maxUpload = MaxUploadBytes
	}
	return &Session{
		id:        id,
		machine:   machine,
		generator: gen,
		history:   hist,
		recorder:  recorder,
		maxUpload: maxUpload,
		state:     machine.Initial(),
		loading:   make(map[Task]bool),
		artists:   []string{},
	}
}

// MaxUpload returns the audio upload limit in bytes
func (s *Session) MaxUpload() int64 {
	return s.maxUpload
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// View returns a snapshot of everything the client renders
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		State:          s.state.Clone(),
		Step:           s.state.Step(),
		Prompt:         s.prompt,
		Enhanced:       s.enhanced,
		Treatment:      s.treatment,
		Artists:        append([]string{}, s.artists...),
		ArtistsLoading: s.artistsLoading,
		Loading:        []Task{},
		History:        s.history.Entries(),
	}
	if err := s.state.Ready(); err != nil {
		v.ReadyMessage = err.Error()
	} else {
		v.Ready = true
	}
	if s.analysis != nil {
		a := *s.analysis
		a.Instruments = append([]string{}, s.analysis.Instruments...)
		v.Analysis = &a
	}
	for _, t := range []Task{TaskGenerate, TaskEnhance, TaskAnalyze, TaskVideo} {
		if s.loading[t] {
			v.Loading = append(v.Loading, t)
		}
	}
	return v
}

// Dispatch applies one wizard action. A changed subgenre starts a fresh
// artist inspiration fetch.
func (s *Session) Dispatch(ctx context.Context, action selection.Action) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.machine.Apply(s.state, action)
	if err != nil {
		return s.viewLocked(), err
	}
	s.replaceStateLocked(ctx, next)
	return s.viewLocked(), nil
}

func (s *Session) replaceStateLocked(ctx context.Context, next selection.State) {
	prev := s.state.Subgenre
	s.state = next
	if next.Subgenre != prev {
		s.fetchArtistsLocked(ctx, next.Subgenre)
	}
}

// fetchArtistsLocked starts a lookup for subgenre. Only the newest lookup
// may publish its result.
func (s *Session) fetchArtistsLocked(ctx context.Context, subgenre string) {
	s.artistSeq++
	seq := s.artistSeq
	s.artists = []string{}
	if subgenre == "" {
		s.artistsLoading = false
		return
	}
	s.artistsLoading = true

	ctx = context.WithoutCancel(ctx)
	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		artists := s.generator.ArtistInspirations(ctx, subgenre)

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.artistSeq {
			logger.Debug("Discarding stale artist inspirations", logger.Fields{
				"session_id": s.id,
				"subgenre":   subgenre,
			})
			return
		}
		s.artists = artists
		s.artistsLoading = false
	}()
}

// Wait blocks until every artist lookup started so far has finished
func (s *Session) Wait() {
	s.fetches.Wait()
}

// begin claims the loading flag for t
func (s *Session) begin(t Task) error {
	if s.loading[t] {
		return ErrBusy
	}
	s.loading[t] = true
	return nil
}

// Generate produces the final prompt for the current selection. On failure
// the previously generated prompt is kept.
func (s *Session) Generate(ctx context.Context) (View, error) {
	s.mu.Lock()
	if err := s.state.Ready(); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}
	if err := s.begin(TaskGenerate); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}
	snap := s.state.Snapshot()
	s.mu.Unlock()

	text, err := s.generator.GenerateSong(ctx, snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, TaskGenerate)
	if err != nil {
		return s.viewLocked(), err
	}
	s.prompt = text
	s.history.Add(ctx, text, snap)
	return s.viewLocked(), nil
}

// Enhance expands a short idea into a detailed prompt
func (s *Session) Enhance(ctx context.Context, idea string) (View, error) {
	idea = strings.TrimSpace(idea)

	s.mu.Lock()
	if idea == "" {
		defer s.mu.Unlock()
		return s.viewLocked(), &selection.ValidationError{Message: MsgEmptyIdea}
	}
	if err := s.begin(TaskEnhance); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}
	s.mu.Unlock()

	text, err := s.generator.Enhance(ctx, idea)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, TaskEnhance)
	if err != nil {
		return s.viewLocked(), err
	}
	s.enhanced = text
	return s.viewLocked(), nil
}

// Analyze asks the model to describe a track. Uploaded audio takes
// precedence over the URL.
func (s *Session) Analyze(ctx context.Context, src AudioSource) (View, error) {
	src.URL = strings.TrimSpace(src.URL)

	var attachment *llm.Attachment
	var verr error
	switch {
	case len(src.Data) > 0:
		attachment, verr = s.attachment(src.Data)
	case src.URL == "":
		verr = &selection.ValidationError{Message: MsgNoAudioSource}
	}

	s.mu.Lock()
	if verr != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), verr
	}
	if err := s.begin(TaskAnalyze); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}
	s.mu.Unlock()

	result, err := s.generator.AnalyzeTrack(ctx, src.URL, attachment)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, TaskAnalyze)
	if err != nil {
		return s.viewLocked(), err
	}
	s.analysis = result
	return s.viewLocked(), nil
}

func (s *Session) attachment(data []byte) (*llm.Attachment, error) {
	if int64(len(data)) > s.maxUpload {
		return nil, FileTooLarge(s.maxUpload)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "audio/") {
		logger.Warn("Rejected non-audio upload", logger.Fields{"session_id": s.id, "mime_type": mt.String()})
		return nil, &selection.ValidationError{Message: MsgNotAudio}
	}
	return &llm.Attachment{MIMEType: mt.String(), Data: data}, nil
}

// UseAnalysis seeds mode from the last analysis result
func (s *Session) UseAnalysis(ctx context.Context, mode models.Mode) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis == nil {
		return s.viewLocked(), &selection.ValidationError{Message: MsgNoAnalysis}
	}
	next, err := s.machine.UseAnalysis(*s.analysis, mode)
	if err != nil {
		return s.viewLocked(), err
	}
	s.replaceStateLocked(ctx, next)
	return s.viewLocked(), nil
}

// VideoTreatment writes a music video concept for songPrompt, falling back
// to the last generated prompt
func (s *Session) VideoTreatment(ctx context.Context, songPrompt string) (View, error) {
	songPrompt = strings.TrimSpace(songPrompt)

	s.mu.Lock()
	if songPrompt == "" {
		songPrompt = s.prompt
	}
	if songPrompt == "" {
		defer s.mu.Unlock()
		return s.viewLocked(), &selection.ValidationError{Message: MsgNoPromptForVideo}
	}
	if err := s.begin(TaskVideo); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}
	s.mu.Unlock()

	text, err := s.generator.VideoTreatment(ctx, songPrompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, TaskVideo)
	if err != nil {
		return s.viewLocked(), err
	}
	s.treatment = text
	return s.viewLocked(), nil
}

// Share returns the share URL of the current selection
func (s *Session) Share(base *url.URL) (string, error) {
	s.mu.Lock()
	snap := s.state.Snapshot()
	step := s.state.Step()
	s.mu.Unlock()

	if step != selection.StepConfigure {
		return "", &selection.ValidationError{Message: selection.MsgIncompleteSelection}
	}
	tok, err := share.Encode(snap)
	if err != nil {
		return "", fmt.Errorf("encode share token: %w", err)
	}
	return share.URL(base, tok), nil
}

// RestoreShare replaces the selection with the one carried by a share
// token. Failures leave the session untouched and are only logged.
func (s *Session) RestoreShare(ctx context.Context, token string) (View, bool) {
	snap, err := share.Decode(token)
	if err != nil {
		return s.restoreFailed(ctx, RestoreSourceShare, err), false
	}
	return s.restore(ctx, RestoreSourceShare, snap)
}

// ReuseHistory loads the selection of a history entry
func (s *Session) ReuseHistory(ctx context.Context, id string) (View, bool) {
	entry, ok := s.history.Get(id)
	if !ok {
		return s.restoreFailed(ctx, RestoreSourceHistory, fmt.Errorf("history entry %q not found", id)), false
	}
	return s.restore(ctx, RestoreSourceHistory, entry.Snapshot)
}

func (s *Session) restore(ctx context.Context, source string, snap models.Snapshot) (View, bool) {
	s.mu.Lock()
	next, err := s.machine.Restore(snap)
	if err != nil {
		s.mu.Unlock()
		return s.restoreFailed(ctx, source, err), false
	}
	s.replaceStateLocked(ctx, next)
	v := s.viewLocked()
	s.mu.Unlock()

	s.recorder.RecordRestore(ctx, source, true)
	logger.Info("Restored selection", logger.Fields{
		"session_id": s.id,
		"source":     source,
		"mode":       snap.Mode.String(),
		"subgenre":   snap.Subgenre,
	})
	return v, true
}

func (s *Session) restoreFailed(ctx context.Context, source string, err error) View {
	s.recorder.RecordRestore(ctx, source, false)
	logger.Warn("Failed to restore selection", logger.Fields{
		"session_id": s.id,
		"source":     source,
		"error":      err.Error(),
	})
	return s.View()
}

// ClearHistory removes every history entry
func (s *Session) ClearHistory(ctx context.Context) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear(ctx)
	return s.viewLocked()
}

// History returns the stored entries, newest first
func (s *Session) History() []models.HistoryEntry {
	return s.history.Entries()
}

// touch records activity for idle eviction
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
