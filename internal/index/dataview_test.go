package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/othala/internal/dataview"
)

func TestExecuteQuery_ListDefaults(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "notes/a.md", "# A\nbody")
	indexContent(t, db, "notes/b.md", "---\narchived: true\n---\n# B\nbody")

	res := db.ExecuteQuery(&dataview.SerializedQuery{Kind: "LIST"})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1, "archived notes are hidden by default")
	assert.Equal(t, "notes/a.md", res.Rows[0].Path)
	assert.Equal(t, "A", res.Rows[0].Values["file.name"])
	assert.Equal(t, "notes", res.Rows[0].Values["file.folder"])
	assert.NotEmpty(t, res.Rows[0].Values["file.mtime"])
	assert.Nil(t, res.Columns, "LIST carries no column header")
}

func TestExecuteQuery_ArchivedCondition(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "live.md", "# Live")
	indexContent(t, db, "dead.md", "---\narchived: true\n---\n# Dead")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind: "LIST",
		Where: &dataview.SerializedCondition{
			Type: "comparison", Field: "archived", Operator: "=", Value: true,
		},
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "dead.md", res.Rows[0].Path)
}

func TestExecuteQuery_TableProjectsFrontmatter(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "p.md", "---\nstatus: open\npriority: 3\n---\n# Project")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind:   "TABLE",
		Fields: []string{"file.name", "status", "priority"},
	})
	require.Empty(t, res.Error)
	assert.Equal(t, []string{"file.name", "status", "priority"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "open", res.Rows[0].Values["status"])
	assert.EqualValues(t, 3, res.Rows[0].Values["priority"])
}

func TestExecuteQuery_TagSourceOneRowPerNote(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "multi.md", "# Multi\n#project #project-alpha")
	indexContent(t, db, "other.md", "# Other\n#misc")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind:        "LIST",
		FromSources: []dataview.FromSource{{Type: dataview.SourceTag, Value: "project"}},
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1, "tag join must not duplicate the note")
	assert.Equal(t, "multi.md", res.Rows[0].Path)
}

func TestExecuteQuery_FolderSource(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "projects/a.md", "# A")
	indexContent(t, db, "daily/b.md", "# B")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind:        "LIST",
		FromSources: []dataview.FromSource{{Type: dataview.SourceFolder, Value: "projects"}},
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "projects/a.md", res.Rows[0].Path)
}

func TestExecuteQuery_LinkSource(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "hub.md", "# Hub")
	indexContent(t, db, "pointer.md", "# Pointer\n[[hub]]")
	indexContent(t, db, "loner.md", "# Loner")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind:        "LIST",
		FromSources: []dataview.FromSource{{Type: dataview.SourceLink, Value: "[[hub]]"}},
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "pointer.md", res.Rows[0].Path)
}

func TestExecuteQuery_FrontmatterWhereAndSort(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "a.md", "---\nstatus: open\npriority: 1\n---\n# One")
	indexContent(t, db, "b.md", "---\nstatus: open\npriority: 9\n---\n# Nine")
	indexContent(t, db, "c.md", "---\nstatus: done\npriority: 5\n---\n# Done")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind: "LIST",
		Where: &dataview.SerializedCondition{
			Type: "comparison", Field: "status", Operator: "=", Value: "open",
		},
		Sort:  []dataview.SortClause{{Field: "priority", Direction: "DESC"}},
		Limit: 10,
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "b.md", res.Rows[0].Path)
	assert.Equal(t, "a.md", res.Rows[1].Path)
}

func TestExecuteQuery_Limit(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "a.md", "# A")
	indexContent(t, db, "b.md", "# B")
	indexContent(t, db, "c.md", "# C")

	res := db.ExecuteQuery(&dataview.SerializedQuery{Kind: "LIST", Limit: 2})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 2)
}

func TestExecuteQuery_ErrorEnvelope(t *testing.T) {
	db := testDB(t)
	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind: "TABLE",
		Where: &dataview.SerializedCondition{
			Type: "comparison", Field: "title", Operator: "REGEXP", Value: "x",
		},
	})
	require.NotEmpty(t, res.Error)
	assert.Contains(t, res.Error, "unknown operator")
	assert.Equal(t, dataview.KindTable, res.Kind)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestExecuteQuery_HostileFieldNameIsHarmless(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "safe.md", "# Safe")

	res := db.ExecuteQuery(&dataview.SerializedQuery{
		Kind: "LIST",
		Where: &dataview.SerializedCondition{
			Type:     "comparison",
			Field:    `x'); DROP TABLE notes; --`,
			Operator: "=",
			Value:    "v",
		},
	})
	// Whether SQLite rejects the JSON path or treats the field as absent,
	// the bound parameter keeps the key out of the statement text.
	assert.Empty(t, res.Rows)

	n, err := db.GetNote("safe.md")
	require.NoError(t, err)
	assert.Equal(t, "Safe", n.Title)
}
