package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "posts.json", `[
		{"id": "hello", "type": "post", "title": "Hello World",
		 "tags": ["intro"], "post": {"slug": "hello", "date": "2024-01-01"}},
		{"id": "second", "type": "post", "title": "Second Post",
		 "post": {"slug": "second"}}
	]`)
	writeFile(t, dir, "folio.json", `
		{"id": "folio", "type": "project", "title": "Folio",
		 "project": {"status": "in-progress", "year": 2024}}`)
	writeFile(t, dir, "broken.json", `{not json`)
	writeFile(t, dir, "invalid.json", `{"id": "x", "type": "post", "title": "X"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if store.Len() != 3 {
		t.Fatalf("loaded %d items, want 3", store.Len())
	}

	t.Run("Get", func(t *testing.T) {
		it, ok := store.Get(TypePost, "hello")
		if !ok {
			t.Fatal("post hello not found")
		}
		if it.Title != "Hello World" {
			t.Errorf("title = %q", it.Title)
		}

		if _, ok := store.Get(TypeProject, "hello"); ok {
			t.Error("post id resolved as project")
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		it, ok := store.Lookup("folio")
		if !ok || it.Type != TypeProject {
			t.Fatal("project folio not found via Lookup")
		}
	})

	t.Run("SnapshotSwapsOnReload", func(t *testing.T) {
		before := store.Snapshot()
		writeFile(t, dir, "third.json", `
			{"id": "third", "type": "post", "title": "Third",
			 "post": {"slug": "third"}}`)
		if err := store.Load(); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		if len(before) != 3 {
			t.Errorf("old snapshot mutated: len=%d", len(before))
		}
		if store.Len() != 4 {
			t.Errorf("reload loaded %d items, want 4", store.Len())
		}
	})
}

func TestWatchPicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed.json", `
		{"id": "seed", "type": "post", "title": "Seed",
		 "post": {"slug": "seed"}}`)

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	reloads := make(chan int, 16)
	store.OnReload(func(n int) { reloads <- n })
	if err := store.Watch(); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	sub := filepath.Join(dir, "drafts")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	// The directory creation itself triggers a reload. Waiting for it
	// guarantees the new directory is on the watch list before the
	// file below lands in it.
	waitReload(t, reloads)

	writeFile(t, sub, "late.json", `
		{"id": "late", "type": "post", "title": "Late Arrival",
		 "post": {"slug": "late"}}`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-reloads:
			if n == 2 {
				return
			}
		case <-deadline:
			t.Fatalf("file in new subdirectory never reloaded, store has %d items", store.Len())
		}
	}
}

func waitReload(t *testing.T, reloads chan int) int {
	t.Helper()
	select {
	case n := <-reloads:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return 0
	}
}

func TestStoreRejectsMissingDir(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("missing directory accepted")
	}
}

func TestStoreDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": "dup", "type": "post", "title": "A", "post": {"slug": "a"}}`)
	writeFile(t, dir, "b.json", `{"id": "dup", "type": "post", "title": "B", "post": {"slug": "b"}}`)

	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Both land in the snapshot but only one wins the id lookup; a
	// post and a project may share an id because namespaces are per
	// variant.
	if _, ok := store.Get(TypePost, "dup"); !ok {
		t.Fatal("dup id not resolvable")
	}
}
