//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_DeleteRemovesFromIndex(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "gone.md", "# Gone\nvanishing content")
	if err := db.RemoveNote("gone.md"); err != nil {
		t.Fatalf("RemoveNote: %v", err)
	}

	results, _ := db.SearchNotes("vanishing", nil, 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted note still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "evo.md", "# Old\noriginal text")
	indexContent(t, db, "evo.md", "# New\nreplacement text")

	results, _ := db.SearchNotes("original", nil, 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.SearchNotes("replacement", nil, 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_TitleWeighting(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "title-hit.md", "# Kanban Process\nshort body")
	indexContent(t, db, "body-hit.md", "# Something Else\na long body that mentions kanban once among many other words here")

	results, err := db.SearchNotes("kanban", nil, 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Path != "title-hit.md" {
		t.Errorf("title match should rank first, got %q", results[0].Path)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %f, want positive", results[0].Score)
	}
}

func TestFTS5_MultiTermAnyMatch(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "one.md", "# One\nalpha content")
	indexContent(t, db, "two.md", "# Two\nbravo content")

	results, err := db.SearchNotes("alpha bravo", nil, 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("OR semantics expected, got %d results", len(results))
	}
}
