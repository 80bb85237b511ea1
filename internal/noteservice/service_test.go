package noteservice

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/storage"
)

func testService(t *testing.T) (*Service, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "othala-svc-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return NewService(store, db), store
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, "notes/a.md", []byte("# Alpha\n#tag body"))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if created.Title != "Alpha" {
		t.Errorf("title = %q", created.Title)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "tag" {
		t.Errorf("tags = %v", created.Tags)
	}

	got, err := svc.GetNote(ctx, "notes/a.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.ContentHash != created.ContentHash {
		t.Error("content hash changed between create and get")
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "dup.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateNote(ctx, "dup.md", []byte("y"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdate_OptimisticConcurrency(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, "lock.md", []byte("v1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateNote(ctx, "lock.md", []byte("v2"), created.ContentHash); err != nil {
		t.Fatalf("update with matching hash: %v", err)
	}

	_, err = svc.UpdateNote(ctx, "lock.md", []byte("v3"), created.ContentHash)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale hash err = %v, want ErrConflict", err)
	}

	// Empty If-Match skips the check.
	if _, err := svc.UpdateNote(ctx, "lock.md", []byte("v3"), ""); err != nil {
		t.Errorf("update without hash: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.UpdateNote(context.Background(), "ghost.md", []byte("x"), "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete_RemovesFileAndIndex(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "bye.md", []byte("# Bye")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, "bye.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := store.Read("bye.md"); err == nil {
		t.Error("file still on disk")
	}
	if _, err := svc.GetNote(ctx, "bye.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestRename_MovesIdentity(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, "old.md", []byte("# Move"))
	if err != nil {
		t.Fatal(err)
	}

	moved, err := svc.RenameNote(ctx, "old.md", "sub/new.md")
	if err != nil {
		t.Fatalf("RenameNote: %v", err)
	}
	if moved.Path != "sub/new.md" {
		t.Errorf("path = %q", moved.Path)
	}
	if moved.ID == created.ID {
		t.Error("id is path-derived and must change on rename")
	}
	if _, err := svc.GetNote(ctx, "old.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path err = %v", err)
	}
}

func TestRename_TargetExists(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, "a.md", []byte("a"))
	_, _ = svc.CreateNote(ctx, "b.md", []byte("b"))

	_, err := svc.RenameNote(ctx, "a.md", "b.md")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSetArchived_RewritesFrontmatter(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, "flag.md", []byte("# Flag\nbody"))

	note, err := svc.SetArchived(ctx, "flag.md", true)
	if err != nil {
		t.Fatalf("SetArchived: %v", err)
	}
	if !note.Archived {
		t.Error("note should report archived")
	}

	data, _ := store.Read("flag.md")
	text := string(data)
	if !strings.HasPrefix(text, "---\n") || !strings.Contains(text, "archived: true") {
		t.Errorf("front matter not written: %q", text)
	}
	if !strings.Contains(text, "# Flag\nbody") {
		t.Errorf("body lost: %q", text)
	}

	// Clearing the flag drops the key; with no other keys, the front-matter
	// block disappears entirely.
	note, err = svc.SetArchived(ctx, "flag.md", false)
	if err != nil {
		t.Fatal(err)
	}
	if note.Archived {
		t.Error("note should no longer be archived")
	}
	data, _ = store.Read("flag.md")
	if strings.Contains(string(data), "archived") {
		t.Errorf("flag not removed: %q", data)
	}
	if strings.HasPrefix(string(data), "---") {
		t.Errorf("empty front-matter block left behind: %q", data)
	}
}

func TestSetArchived_PreservesOtherKeys(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, "keep.md", []byte("---\ntags:\n  - project\n---\n# Keep"))

	if _, err := svc.SetArchived(ctx, "keep.md", true); err != nil {
		t.Fatal(err)
	}
	data, _ := store.Read("keep.md")
	text := string(data)
	if !strings.Contains(text, "project") {
		t.Errorf("existing front-matter key lost: %q", text)
	}
	if !strings.Contains(text, "archived: true") {
		t.Errorf("flag missing: %q", text)
	}
}

func TestSetStarred(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, "fav.md", []byte("# Fav"))

	note, err := svc.SetStarred(ctx, "fav.md", true)
	if err != nil {
		t.Fatalf("SetStarred: %v", err)
	}
	if !note.Starred {
		t.Error("note should report starred")
	}
}

func TestGetNote_EnrichedWithBacklinks(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, "target.md", []byte("# Target"))
	_, _ = svc.CreateNote(ctx, "src.md", []byte("see [[target]]"))

	note, err := svc.GetNote(ctx, "target.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(note.Backlinks) != 1 || note.Backlinks[0].SourcePath != "src.md" {
		t.Errorf("backlinks = %+v", note.Backlinks)
	}
}

func TestListNotes_Pagination(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	for _, p := range []string{"a.md", "b.md", "c.md"} {
		_, _ = svc.CreateNote(ctx, p, []byte("# "+p))
	}

	items, total, err := svc.ListNotes(ctx, 2, 0, "", "path")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 2 {
		t.Errorf("page size = %d, want 2", len(items))
	}
}
