package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Conceptual-Machines/prompt-architect/internal/kvstore"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every operation
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func (failingStore) Remove(context.Context, string) error {
	return errors.New("storage unavailable")
}

func snapshot(subgenre string) models.Snapshot {
	return models.Snapshot{
		Mode:     models.ModeInstrumental,
		Subgenre: subgenre,
		Configuration: models.Configuration{
			Mood:        models.Ptr("Dark"),
			Instruments: []string{"Moog Synth", "Drum Machine"},
			Structure:   "[Verse] [Chorus]",
		},
	}
}

func steppingClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestAdd_KeepsFiveNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := New(kvstore.NewMemory(), WithClock(steppingClock()))

	var ids []string
	for i := 1; i <= 6; i++ {
		e := store.Add(ctx, fmt.Sprintf("prompt %d", i), snapshot("Techno"))
		ids = append(ids, e.ID)
	}

	entries := store.Entries()
	require.Len(t, entries, Limit)
	assert.Equal(t, "prompt 6", entries[0].Prompt)
	assert.Equal(t, "prompt 2", entries[4].Prompt)

	_, ok := store.Get(ids[0])
	assert.False(t, ok, "oldest entry is evicted")

	got, ok := store.Get(ids[5])
	require.True(t, ok)
	assert.Equal(t, "prompt 6", got.Prompt)
}

func TestAdd_IDsAreUniqueAndOrdered(t *testing.T) {
	ctx := context.Background()
	store := New(kvstore.NewMemory(), WithClock(steppingClock()))

	a := store.Add(ctx, "a", snapshot("Techno"))
	b := store.Add(ctx, "b", snapshot("Techno"))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID, b.ID)
	assert.True(t, b.CreatedAt.After(a.CreatedAt))
}

func TestLoad_RoundTripsThroughStore(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	first := New(kv, WithClock(steppingClock()))
	first.Add(ctx, "one", snapshot("Techno"))
	full := snapshot("Shoegaze")
	full.Mode = models.ModeFullSong
	full.Vocal = models.Ptr("Whispering")
	full.BPM = models.Ptr(96)
	entry := first.Add(ctx, "two", full)

	second := New(kv)
	loaded := second.Load(ctx)
	require.Len(t, loaded, 2)
	assert.Equal(t, entry.ID, loaded[0].ID)
	assert.Equal(t, full, loaded[0].Snapshot)
	assert.True(t, entry.CreatedAt.Equal(loaded[0].CreatedAt))
}

func TestLoad_Fallbacks(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		kv   func() kvstore.KeyValueStore
		want int
	}{
		{
			name: "missing key",
			kv:   func() kvstore.KeyValueStore { return kvstore.NewMemory() },
		},
		{
			name: "corrupted data",
			kv: func() kvstore.KeyValueStore {
				m := kvstore.NewMemory()
				_ = m.Set(ctx, StorageKey, "{not json")
				return m
			},
		},
		{
			name: "store failure",
			kv:   func() kvstore.KeyValueStore { return failingStore{} },
		},
		{
			name: "oversized list truncated",
			kv: func() kvstore.KeyValueStore {
				m := kvstore.NewMemory()
				data := "["
				for i := 0; i < 7; i++ {
					if i > 0 {
						data += ","
					}
					data += fmt.Sprintf(`{"id":"%d","prompt":"p","promptMode":"Instrumental","subgenre":"Techno"}`, i)
				}
				_ = m.Set(ctx, StorageKey, data+"]")
				return m
			},
			want: Limit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(tt.kv())
			assert.Len(t, store.Load(ctx), tt.want)
			assert.Len(t, store.Entries(), tt.want)
		})
	}
}

func TestClear_PersistsEmptyList(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store := New(kv)
	store.Add(ctx, "one", snapshot("Techno"))

	store.Clear(ctx)
	assert.Empty(t, store.Entries())

	raw, ok, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", raw)

	assert.Empty(t, New(kv).Load(ctx))
}

func TestAdd_SurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := New(failingStore{})

	entry := store.Add(ctx, "kept in memory", snapshot("Techno"))
	assert.NotEmpty(t, entry.ID)
	require.Len(t, store.Entries(), 1)
	assert.Equal(t, "kept in memory", store.Entries()[0].Prompt)
}

func TestEntries_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New(kvstore.NewMemory())
	store.Add(ctx, "one", snapshot("Techno"))

	entries := store.Entries()
	entries[0].Instruments[0] = "Kazoo"

	assert.Equal(t, "Moog Synth", store.Entries()[0].Instruments[0])
}

func TestWriteCSV(t *testing.T) {
	ctx := context.Background()
	store := New(kvstore.NewMemory(), WithClock(steppingClock()))
	snap := snapshot("Techno")
	snap.BPM = models.Ptr(128)
	snap.Key = models.Ptr("A Minor")
	store.Add(ctx, "pounding, hypnotic techno", snap)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, store.Entries()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := records[0]
	row := make(map[string]string, len(header))
	for i, name := range header {
		row[name] = records[1][i]
	}
	assert.Equal(t, "Instrumental", row["mode"])
	assert.Equal(t, "Techno", row["subgenre"])
	assert.Equal(t, "Dark", row["mood"])
	assert.Equal(t, "Moog Synth; Drum Machine", row["instruments"])
	assert.Equal(t, "128", row["bpm"])
	assert.Equal(t, "A Minor", row["key"])
	assert.Equal(t, "pounding, hypnotic techno", row["prompt"])
	assert.Equal(t, "2024-05-01T12:00:01Z", row["created_at"])
}
