package index

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/extract"
	"github.com/starford/othala/internal/storage"
)

func testVault(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSync_IndexesNewFiles(t *testing.T) {
	db := testDB(t)
	_, store := testVault(t, map[string]string{
		"a.md":       "# Alpha\n#one",
		"notes/b.md": "# Beta\n[[a]]",
	})

	if err := Sync(db, store, discardLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	paths, err := db.AllPaths()
	if err != nil {
		t.Fatalf("AllPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want 2", paths)
	}
	n, err := db.GetNote("notes/b.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Beta" {
		t.Errorf("title = %q", n.Title)
	}
}

func TestSync_SkipsUnchangedByHash(t *testing.T) {
	db := testDB(t)
	content := "# Disk Title\nbody"
	_, store := testVault(t, map[string]string{"a.md": content})

	// Seed the index with a different title but the same content hash, so a
	// re-extraction would be visible.
	facts := extract.Extract("a.md", content, nil)
	err := db.UpsertNote(NoteRow{
		ID:          checksum.NoteID("a.md"),
		Path:        "a.md",
		Title:       "Seeded Title",
		Content:     content,
		ContentHash: checksum.ContentHash([]byte(content)),
		CreatedAt:   time.Now(),
		ModifiedAt:  time.Now(),
	}, facts)
	if err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, store, discardLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	n, err := db.GetNote("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Seeded Title" {
		t.Errorf("unchanged file was re-indexed: title = %q", n.Title)
	}
}

func TestSync_RemovesStaleEntries(t *testing.T) {
	db := testDB(t)
	_, store := testVault(t, map[string]string{"keep.md": "# Keep"})
	indexContent(t, db, "gone.md", "# Gone")

	if err := Sync(db, store, discardLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if _, err := db.GetNote("gone.md"); err == nil {
		t.Error("stale entry should be removed")
	}
	if _, err := db.GetNote("keep.md"); err != nil {
		t.Errorf("disk file missing from index: %v", err)
	}
}

func TestSync_PicksUpContentChanges(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t, map[string]string{"a.md": "# Before"})

	if err := Sync(db, store, discardLogger()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("# After"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, discardLogger()); err != nil {
		t.Fatal(err)
	}

	n, err := db.GetNote("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "After" {
		t.Errorf("title = %q, want After", n.Title)
	}
}

func TestReindex_RebuildsEverythingAndPurges(t *testing.T) {
	db := testDB(t)
	content := "# Disk Title\nbody"
	_, store := testVault(t, map[string]string{
		"a.md": content,
		"b.md": "# B",
	})

	// Seed a.md with a stale title and add an entry with no disk file.
	facts := extract.Extract("a.md", content, nil)
	err := db.UpsertNote(NoteRow{
		ID:          checksum.NoteID("a.md"),
		Path:        "a.md",
		Title:       "Seeded Title",
		Content:     content,
		ContentHash: checksum.ContentHash([]byte(content)),
		CreatedAt:   time.Now(),
		ModifiedAt:  time.Now(),
	}, facts)
	if err != nil {
		t.Fatal(err)
	}
	indexContent(t, db, "stale.md", "# Stale")

	count, err := Reindex(db, store, discardLogger())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	if _, err := db.GetNote("stale.md"); err == nil {
		t.Error("stale entry survived reindex")
	}
	n, err := db.GetNote("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Disk Title" {
		t.Errorf("reindex must re-extract regardless of hash, title = %q", n.Title)
	}
}
