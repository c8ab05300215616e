package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/metrics"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/Conceptual-Machines/prompt-architect/internal/observability"
	"github.com/Conceptual-Machines/prompt-architect/internal/prompt"
)

// User-facing failure messages
const (
	MsgGenerationFailed = "Failed to communicate with the AI model."
	MsgAnalysisFailed   = "Failed to analyze the track with the AI model."
)

// ErrGeneration matches every *GenerationError
var ErrGeneration = errors.New("generation failed")

// GenerationError is a failed model call. Message is safe to show to users.
type GenerationError struct {
	Operation string
	Message   string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// PromptService runs assembled requests against the model. Every method
// makes exactly one outbound call and never retries.
type PromptService struct {
	provider llm.Provider
	builder  *prompt.Builder
	recorder *metrics.Recorder
	tracer   *observability.LangfuseClient
}

// NewPromptService creates the service. recorder and tracer may be nil.
func NewPromptService(
	provider llm.Provider,
	builder *prompt.Builder,
	recorder *metrics.Recorder,
	tracer *observability.LangfuseClient,
) *PromptService {
	if tracer == nil {
		tracer = observability.GetClient()
	}
	return &PromptService{
		provider: provider,
		builder:  builder,
		recorder: recorder,
		tracer:   tracer,
	}
}

// GenerateSong produces the final prompt for an Instrumental or Full Song snapshot
func (s *PromptService) GenerateSong(ctx context.Context, snap models.Snapshot) (string, error) {
	req, err := s.builder.Song(snap)
	if err != nil {
		op := prompt.OperationInstrumental
		if snap.Mode == models.ModeFullSong {
			op = prompt.OperationFullSong
		}
		return "", s.fail(op, MsgGenerationFailed, err, nil)
	}
	return s.text(ctx, req, MsgGenerationFailed, map[string]interface{}{
		"mode":     snap.Mode.String(),
		"subgenre": snap.Subgenre,
	})
}

// Enhance expands a rough idea into a detailed instrumental prompt
func (s *PromptService) Enhance(ctx context.Context, idea string) (string, error) {
	req, err := s.builder.Enhance(idea)
	if err != nil {
		return "", s.fail(prompt.OperationEnhance, MsgGenerationFailed, err, nil)
	}
	return s.text(ctx, req, MsgGenerationFailed, nil)
}

// VideoTreatment writes a music video treatment for a song prompt
func (s *PromptService) VideoTreatment(ctx context.Context, songPrompt string) (string, error) {
	req, err := s.builder.VideoTreatment(songPrompt)
	if err != nil {
		return "", s.fail(prompt.OperationVideoTreatment, MsgGenerationFailed, err, nil)
	}
	return s.text(ctx, req, MsgGenerationFailed, nil)
}

// ArtistInspirations returns the top artists of a subgenre. Any failure
// yields an empty list.
func (s *PromptService) ArtistInspirations(ctx context.Context, subgenre string) []string {
	fields := logger.Fields{"subgenre": subgenre}

	req, err := s.builder.ArtistInspirations(subgenre)
	if err != nil {
		logger.Warn("Skipping artist inspirations", logger.Fields{"subgenre": subgenre, "error": err.Error()})
		return []string{}
	}
	resp, err := s.call(ctx, req, map[string]interface{}{"subgenre": subgenre})
	if err != nil {
		fields["error"] = err.Error()
		logger.Warn("Failed to fetch artist inspirations", fields)
		return []string{}
	}

	var parsed struct {
		Artists []string `json:"artists"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Text)), &parsed); err != nil {
		fields["error"] = err.Error()
		logger.Warn("Failed to parse artist inspirations", fields)
		return []string{}
	}

	artists := make([]string, 0, len(parsed.Artists))
	for _, a := range parsed.Artists {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	return artists
}

// AnalyzeTrack asks the model for the subgenre, mood, tempo, key and
// instruments of a track given by URL or uploaded audio
func (s *PromptService) AnalyzeTrack(ctx context.Context, url string, audio *llm.Attachment) (*models.AnalysisResult, error) {
	req, err := s.builder.AnalyzeTrack(url, audio)
	if err != nil {
		return nil, s.fail(prompt.OperationAnalyzeTrack, MsgAnalysisFailed, err, nil)
	}

	metadata := map[string]interface{}{"source": "url"}
	if req.Audio != nil {
		metadata["source"] = "upload"
		metadata["mime_type"] = req.Audio.MIMEType
		metadata["bytes"] = len(req.Audio.Data)
	}

	resp, err := s.call(ctx, req, metadata)
	if err != nil {
		return nil, s.fail(req.Operation, MsgAnalysisFailed, err, logger.Fields{"model": req.Model})
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Text)), &result); err != nil {
		return nil, s.fail(req.Operation, MsgAnalysisFailed, fmt.Errorf("malformed analysis: %w", err), logger.Fields{"model": req.Model})
	}
	if strings.TrimSpace(result.Subgenre) == "" {
		return nil, s.fail(req.Operation, MsgAnalysisFailed, errors.New("analysis has no subgenre"), logger.Fields{"model": req.Model})
	}
	if result.Instruments == nil {
		result.Instruments = []string{}
	}
	return &result, nil
}

// text runs a free-text request and returns the trimmed output
func (s *PromptService) text(ctx context.Context, req *llm.GenerationRequest, msg string, metadata map[string]interface{}) (string, error) {
	resp, err := s.call(ctx, req, metadata)
	if err != nil {
		return "", s.fail(req.Operation, msg, err, logger.Fields{"model": req.Model})
	}
	return strings.TrimSpace(resp.Text), nil
}

// call performs the single outbound request with tracing and metrics
func (s *PromptService) call(ctx context.Context, req *llm.GenerationRequest, metadata map[string]interface{}) (*llm.GenerationResponse, error) {
	trace := s.tracer.StartTrace(ctx, req.Operation, metadata)
	defer trace.Finish()
	gen := trace.Generation(req.Operation, map[string]interface{}{"provider": s.provider.Name()})
	gen.Input(req.Prompt)

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = llm.ErrEmptyResponse
	}
	duration := time.Since(start)

	if err != nil {
		gen.SetLevel("ERROR")
		gen.Metadata(map[string]interface{}{"error": err.Error()})
		gen.Finish()
		s.recorder.RecordGeneration(ctx, req.Operation, req.Model, duration, llm.Usage{}, false)
		return nil, err
	}

	gen.RecordResponse(req, resp)
	gen.Finish()
	s.recorder.RecordGeneration(ctx, req.Operation, resp.Model, duration, resp.Usage, true)

	logger.LogGenerationRequest(ctx, req.Operation, resp.Model, duration, resp.Usage.Input, resp.Usage.Output, nil)
	return resp, nil
}

func (s *PromptService) fail(operation, msg string, err error, fields logger.Fields) error {
	if fields == nil {
		fields = logger.Fields{}
	}
	fields["operation"] = operation
	logger.Error("Generation failed", err, fields)
	return &GenerationError{Operation: operation, Message: msg, Err: err}
}

// stripCodeFence removes a surrounding markdown code fence
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
