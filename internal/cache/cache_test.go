package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"buzzdigest/internal/model"
	"buzzdigest/internal/store"
)

func testDay(t *testing.T) model.Date {
	t.Helper()
	day, err := model.ParseDate("2026-02-26")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	return day
}

func TestKey(t *testing.T) {
	day := testDay(t)

	if got := Key(day, "posts", ""); got != "2026-02-26/posts.json" {
		t.Errorf("Key without fingerprint = %q", got)
	}
	if got := Key(day, "news", "Jane Doe"); got != "2026-02-26/news-Jane Doe.json" {
		t.Errorf("Key with fingerprint = %q", got)
	}
}

func TestFingerprintTruncatesLongArgs(t *testing.T) {
	long := strings.Repeat("x", 30)
	got := Fingerprint(long, "short")
	want := strings.Repeat("x", 20) + "-short"
	if got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestGetOrComputeRunsOnce(t *testing.T) {
	c := New(store.NewMemory())
	day := testDay(t)

	calls := 0
	compute := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrCompute(context.Background(), c, day, "posts", "", compute, nil)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("GetOrCompute = %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrComputePartitionsByDate(t *testing.T) {
	c := New(store.NewMemory())
	dayOne := testDay(t)
	dayTwo, _ := model.ParseDate("2026-02-27")

	calls := 0
	compute := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, _ := GetOrCompute(context.Background(), c, dayOne, "posts", "", compute, nil)
	second, _ := GetOrCompute(context.Background(), c, dayTwo, "posts", "", compute, nil)
	if first == second {
		t.Errorf("different dates shared a record: %d and %d", first, second)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestGetOrComputeSkipsUncacheableResults(t *testing.T) {
	c := New(store.NewMemory())
	day := testDay(t)

	calls := 0
	compute := func(ctx context.Context) ([]string, error) {
		calls++
		return nil, nil
	}
	nonEmpty := func(v []string) bool { return len(v) > 0 }

	for i := 0; i < 2; i++ {
		got, err := GetOrCompute(context.Background(), c, day, "posts", "", compute, nonEmpty)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("GetOrCompute = %v, want empty", got)
		}
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2 (empty results must not stick)", calls)
	}
}

func TestGetOrComputeTreatsUnreadableRecordAsMiss(t *testing.T) {
	blobs := store.NewMemory()
	c := New(blobs)
	day := testDay(t)

	key := Key(day, "news", "acme")
	if err := blobs.Put(context.Background(), key, []byte("{not json")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	calls := 0
	compute := func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	got, err := GetOrCompute(context.Background(), c, day, "news", "acme", compute, nil)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if got != "fresh" || calls != 1 {
		t.Errorf("got %q after %d calls, want fresh result from 1 call", got, calls)
	}

	// The recomputed value replaces the broken record.
	calls = 0
	got, err = GetOrCompute(context.Background(), c, day, "news", "acme", compute, nil)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if got != "fresh" || calls != 0 {
		t.Errorf("got %q after %d calls, want cached result", got, calls)
	}
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	blobs := store.NewMemory()
	c := New(blobs)
	day := testDay(t)

	boom := errors.New("upstream down")
	calls := 0
	compute := func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	}

	for i := 0; i < 2; i++ {
		if _, err := GetOrCompute(context.Background(), c, day, "posts", "", compute, nil); !errors.Is(err, boom) {
			t.Fatalf("GetOrCompute error = %v, want %v", err, boom)
		}
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2 (failures must not stick)", calls)
	}
	if _, err := blobs.Get(context.Background(), Key(day, "posts", "")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("a failed computation left a record behind")
	}
}
