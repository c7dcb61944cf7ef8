package history_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sharan9277/ai-studio/internal/domain"
	"github.com/Sharan9277/ai-studio/internal/history"
	"github.com/Sharan9277/ai-studio/internal/storage"
)

const testKey = "test/history"

func result(id string) domain.GenerationResult {
	return domain.GenerationResult{
		ID:        id,
		ImageURL:  "https://example.com/" + id + ".jpg",
		Prompt:    "prompt for " + id,
		Style:     domain.StyleWatercolor,
		CreatedAt: time.Now(),
	}
}

func newStore(kv storage.KeyValue) *history.Store {
	return history.New(kv, history.Options{Key: testKey})
}

func ids(results []domain.GenerationResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestAddOrdersMostRecentFirstAndTrims(t *testing.T) {
	store := newStore(storage.NewMemory(0))

	for i := 1; i <= 6; i++ {
		store.Add(result(fmt.Sprintf("gen-%d", i)))
	}

	got := store.List()
	require.Len(t, got, 5)
	assert.Equal(t, []string{"gen-6", "gen-5", "gen-4", "gen-3", "gen-2"}, ids(got))
}

func TestReAddingExistingIDMovesToFront(t *testing.T) {
	store := newStore(storage.NewMemory(0))

	store.Add(result("gen-1"))
	store.Add(result("gen-2"))
	store.Add(result("gen-3"))
	store.Add(result("gen-1"))

	got := store.List()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"gen-1", "gen-3", "gen-2"}, ids(got))
}

func TestAddInvalidResultIsNoOp(t *testing.T) {
	store := newStore(storage.NewMemory(0))
	store.Add(result("gen-1"))

	invalid := result("gen-2")
	invalid.ImageURL = ""
	store.Add(invalid)

	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "gen-1", got[0].ID)
}

func TestListOnCorruptedDataReturnsEmpty(t *testing.T) {
	kv := storage.NewMemory(0)
	require.NoError(t, kv.Set(testKey, "{not json"))

	store := newStore(kv)
	assert.Empty(t, store.List())
}

func TestListOnMissingKeyReturnsEmpty(t *testing.T) {
	store := newStore(storage.NewMemory(0))
	assert.Empty(t, store.List())
}

func TestInvalidStoredEntriesAreDroppedAndRewritten(t *testing.T) {
	kv := storage.NewMemory(0)
	stored := []domain.GenerationResult{
		result("gen-ok"),
		{ID: "gen-bad", Prompt: "missing url", Style: domain.StyleAnime},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, kv.Set(testKey, string(data)))

	store := newStore(kv)
	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "gen-ok", got[0].ID)

	// The cleaned set was written back.
	raw, ok, err := kv.Get(testKey)
	require.NoError(t, err)
	require.True(t, ok)
	var cleaned []domain.GenerationResult
	require.NoError(t, json.Unmarshal([]byte(raw), &cleaned))
	require.Len(t, cleaned, 1)
	assert.Equal(t, "gen-ok", cleaned[0].ID)
}

func TestQuotaExhaustionRecoversWithSingleEntry(t *testing.T) {
	// Size the quota so one entry fits but two do not.
	one, err := json.Marshal([]domain.GenerationResult{result("gen-2")})
	require.NoError(t, err)
	kv := storage.NewMemory(len(one) + 16)

	store := newStore(kv)
	store.Add(result("gen-1"))
	store.Add(result("gen-2"))

	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "gen-2", got[0].ID, "recovery keeps only the most recent entry")
}

// failingKV rejects every write but serves a fixed stored value.
type failingKV struct {
	value string
}

func (f *failingKV) Get(string) (string, bool, error) { return f.value, f.value != "", nil }
func (f *failingKV) Set(string, string) error         { return storage.ErrQuotaExceeded }
func (f *failingKV) Delete(string) error              { return nil }

func TestWriteFailureLeavesStorageUnchangedAndIsSwallowed(t *testing.T) {
	seeded, err := json.Marshal([]domain.GenerationResult{result("gen-old")})
	require.NoError(t, err)
	kv := &failingKV{value: string(seeded)}

	store := newStore(kv)

	var notified []domain.GenerationResult
	store.Subscribe(func(view []domain.GenerationResult) { notified = view })

	store.Add(result("gen-new"))

	// Listeners see the in-memory view regardless of the write outcome.
	require.Len(t, notified, 2)
	assert.Equal(t, "gen-new", notified[0].ID)

	// Storage still holds the old state, so a reload surfaces it.
	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "gen-old", got[0].ID)
}

// erroringKV fails reads outright.
type erroringKV struct{}

func (erroringKV) Get(string) (string, bool, error) {
	return "", false, fmt.Errorf("storage unavailable")
}
func (erroringKV) Set(string, string) error { return fmt.Errorf("storage unavailable") }
func (erroringKV) Delete(string) error      { return fmt.Errorf("storage unavailable") }

func TestUnavailableStorageYieldsEmptyList(t *testing.T) {
	store := newStore(erroringKV{})
	assert.Empty(t, store.List())
}

func TestSizeThresholdShrinksBeforeWriting(t *testing.T) {
	kv := storage.NewMemory(0)
	store := history.New(kv, history.Options{
		Key:           testKey,
		MaxEntries:    5,
		ShrinkEntries: 3,
		SizeThreshold: 64,
	})

	big := result("gen-1")
	big.Prompt = strings.Repeat("very detailed prompt ", 10)
	store.Add(big)
	for i := 2; i <= 5; i++ {
		r := result(fmt.Sprintf("gen-%d", i))
		r.Prompt = strings.Repeat("very detailed prompt ", 10)
		store.Add(r)
	}

	got := store.List()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"gen-5", "gen-4", "gen-3"}, ids(got))
}

func TestRemoveAndClear(t *testing.T) {
	kv := storage.NewMemory(0)
	store := newStore(kv)
	store.Add(result("gen-1"))
	store.Add(result("gen-2"))
	store.Add(result("gen-3"))

	store.Remove("gen-2")
	assert.Equal(t, []string{"gen-3", "gen-1"}, ids(store.List()))

	store.Remove("gen-missing")
	assert.Len(t, store.List(), 2)

	store.Clear()
	assert.Empty(t, store.List())

	_, ok, err := kv.Get(testKey)
	require.NoError(t, err)
	assert.False(t, ok, "clear removes the storage key")
}

func TestSubscribeNotifiesSynchronouslyAndUnsubscribes(t *testing.T) {
	store := newStore(storage.NewMemory(0))

	var calls [][]string
	unsubscribe := store.Subscribe(func(view []domain.GenerationResult) {
		calls = append(calls, ids(view))
	})

	store.Add(result("gen-1"))
	store.Add(result("gen-2"))
	store.Remove("gen-1")

	require.Len(t, calls, 3)
	assert.Equal(t, []string{"gen-1"}, calls[0])
	assert.Equal(t, []string{"gen-2", "gen-1"}, calls[1])
	assert.Equal(t, []string{"gen-2"}, calls[2])

	unsubscribe()
	store.Clear()
	assert.Len(t, calls, 3, "no notifications after unsubscribe")
}

func TestHistorySurvivesStoreRecreation(t *testing.T) {
	kv := storage.NewMemory(0)

	first := newStore(kv)
	first.Add(result("gen-1"))
	first.Add(result("gen-2"))

	second := newStore(kv)
	assert.Equal(t, []string{"gen-2", "gen-1"}, ids(second.List()))
}
