// Package history keeps the bounded list of recently generated prompts.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Conceptual-Machines/prompt-architect/internal/kvstore"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/gocarina/gocsv"
	"github.com/oklog/ulid/v2"
)

const (
	// StorageKey is the key the list is persisted under
	StorageKey = "sunoPromptHistory"
	// Limit is the number of entries kept
	Limit = 5
)

// Store is a most-recent-first list of history entries backed by a
// key-value store. Persistence is best-effort: failures are logged and the
// in-memory list stays authoritative.
type Store struct {
	mu      sync.Mutex
	kv      kvstore.KeyValueStore
	entries []models.HistoryEntry
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the creation time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv kvstore.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		entries: []models.HistoryEntry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory list with the persisted one. Missing or
// unreadable data yields an empty list.
func (s *Store) Load(ctx context.Context) []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []models.HistoryEntry{}

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		logger.Warn("Failed to read prompt history", logger.Fields{"error": err.Error()})
		return s.copyEntries()
	}
	if !ok || raw == "" {
		return s.copyEntries()
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("Failed to parse prompt history", logger.Fields{"error": err.Error()})
		return s.copyEntries()
	}
	if len(entries) > Limit {
		entries = entries[:Limit]
	}
	for i := range entries {
		entries[i].Snapshot = entries[i].Snapshot.Clone()
	}
	s.entries = entries
	return s.copyEntries()
}

// Add prepends a new entry and persists the list
func (s *Store) Add(ctx context.Context, prompt string, snap models.Snapshot) models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := models.HistoryEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		CreatedAt: now,
		Prompt:    prompt,
		Snapshot:  snap.Clone(),
	}

	entries := make([]models.HistoryEntry, 0, Limit)
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > Limit {
		entries = entries[:Limit]
	}
	s.entries = entries
	s.persist(ctx)
	return entry
}

// Entries returns a copy of the list, newest first
func (s *Store) Entries() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyEntries()
}

// Get looks up an entry by id
func (s *Store) Get(id string) (models.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.Snapshot = e.Snapshot.Clone()
			return e, true
		}
	}
	return models.HistoryEntry{}, false
}

// Clear empties the list and persists the empty list
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []models.HistoryEntry{}
	s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.entries)
	if err != nil {
		logger.Error("Failed to encode prompt history", err, logger.Fields{"entries": len(s.entries)})
		return
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		logger.Warn("Failed to save prompt history", logger.Fields{"error": err.Error()})
	}
}

func (s *Store) copyEntries() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(s.entries))
	for i, e := range s.entries {
		e.Snapshot = e.Snapshot.Clone()
		out[i] = e
	}
	return out
}

type csvRow struct {
	ID             string `csv:"id"`
	CreatedAt      string `csv:"created_at"`
	Mode           string `csv:"mode"`
	Subgenre       string `csv:"subgenre"`
	Mood           string `csv:"mood"`
	Influence      string `csv:"influence"`
	Instruments    string `csv:"instruments"`
	Vocal          string `csv:"vocal_style"`
	Atmosphere     string `csv:"atmosphere"`
	Solfeggio      bool   `csv:"solfeggio"`
	BPM            string `csv:"bpm"`
	Key            string `csv:"key"`
	Structure      string `csv:"structure"`
	LyricalConcept string `csv:"lyrical_concept"`
	Lyrics         string `csv:"lyrics"`
	Prompt         string `csv:"prompt"`
}

// WriteCSV writes entries as CSV with a header row
func WriteCSV(w io.Writer, entries []models.HistoryEntry) error {
	rows := make([]*csvRow, 0, len(entries))
	for _, e := range entries {
		row := &csvRow{
			ID:             e.ID,
			CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
			Mode:           e.Mode.String(),
			Subgenre:       e.Subgenre,
			Mood:           models.Deref(e.Mood),
			Influence:      models.Deref(e.Influence),
			Instruments:    strings.Join(e.Instruments, "; "),
			Vocal:          models.Deref(e.Vocal),
			Atmosphere:     models.Deref(e.Atmosphere),
			Solfeggio:      e.Solfeggio,
			Key:            models.Deref(e.Key),
			Structure:      e.Structure,
			LyricalConcept: e.LyricalConcept,
			Lyrics:         e.Lyrics,
			Prompt:         e.Prompt,
		}
		if e.BPM != nil {
			row.BPM = fmt.Sprintf("%d", *e.BPM)
		}
		rows = append(rows, row)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("history: failed to write csv: %w", err)
	}
	return nil
}
