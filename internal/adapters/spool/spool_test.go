package spool

import (
	"sort"
	"testing"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/observability"
	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
)

func testRecord(resource string) domain.Record {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return domain.Record{
		Timestamp:      ts,
		Runtime:        ts,
		Owner:          "user@example.com",
		Tool:           "Eclipse",
		SensorDataType: "DevEvent",
		Resource:       resource,
	}
}

func TestStoreListReadDelete(t *testing.T) {
	store, err := New(t.TempDir(), observability.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if store.HasOfflineData() {
		t.Fatal("fresh store should report no offline data")
	}

	first := domain.Batch{testRecord("file://a.java"), testRecord("file://b.java")}
	second := domain.Batch{testRecord("file://c.java")}
	if err := store.Store(first); err != nil {
		t.Fatalf("store first: %v", err)
	}
	if err := store.Store(second); err != nil {
		t.Fatalf("store second: %v", err)
	}
	if !store.HasOfflineData() {
		t.Fatal("store should report offline data after a write")
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 files, got %v", names)
	}

	batch, err := store.Read(names[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(batch) != 2 || batch[0].Resource != "file://a.java" || batch[1].Resource != "file://b.java" {
		t.Fatalf("first file should hold the first batch in order, got %+v", batch)
	}

	if err := store.Delete(names[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	names, err = store.List()
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected 1 file after delete, got %v", names)
	}
}

func TestStoreSkipsEmptyBatch(t *testing.T) {
	store, err := New(t.TempDir(), observability.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Store(nil); err != nil {
		t.Fatalf("store empty: %v", err)
	}
	names, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("empty batch must not create a file, got %v", names)
	}
	if store.HasOfflineData() {
		t.Fatal("empty batch must not mark offline data")
	}
}

func TestFilenamesSortInCreationOrder(t *testing.T) {
	store, err := New(t.TempDir(), observability.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	// Drive name allocation directly so same-millisecond and advancing
	// clocks are both covered deterministically.
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	var names []string
	names = append(names, store.nextNameLocked(base))
	names = append(names, store.nextNameLocked(base)) // same millisecond
	names = append(names, store.nextNameLocked(base)) // same millisecond again
	names = append(names, store.nextNameLocked(base.Add(time.Millisecond)))
	names = append(names, store.nextNameLocked(base.Add(time.Second)))

	if !sort.StringsAreSorted(names) {
		t.Fatalf("allocation order must match lexicographic order: %v", names)
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Fatalf("duplicate filename %q in %v", n, names)
		}
		seen[n] = true
	}
}
