package index

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/extract"
)

// indexContentAt is indexContent with a fixed modification time, used by
// tie-break tests.
func indexContentAt(t *testing.T, db *DB, path, content string, modified time.Time) {
	t.Helper()
	data := []byte(content)
	fm, _ := extract.SplitFrontmatter(data)
	facts := extract.Extract(path, content, fm)
	err := db.UpsertNote(NoteRow{
		ID:          checksum.NoteID(path),
		Path:        path,
		Title:       facts.Title,
		Content:     content,
		ContentHash: checksum.ContentHash(data),
		Frontmatter: fm,
		Archived:    facts.Archived,
		Starred:     facts.Starred,
		CreatedAt:   modified,
		ModifiedAt:  modified,
	}, facts)
	require.NoError(t, err)
}

func TestBacklinks_ExactAndFuzzy(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "notes/target.md", "# Target Note\ncontent")
	indexContent(t, db, "a.md", "# A\nlink [[notes/target.md]]")
	indexContent(t, db, "b.md", "# B\nlink [[notes/target]]")
	indexContent(t, db, "c.md", "# C\nlink [[target]]")
	indexContent(t, db, "d.md", "# D\nlink [[Target Note]]")
	indexContent(t, db, "e.md", "# E\nno link at all")

	bl, err := db.Backlinks("notes/target.md")
	require.NoError(t, err)
	require.Len(t, bl, 4)

	sources := make([]string, len(bl))
	for i, b := range bl {
		sources[i] = b.SourcePath
	}
	assert.Equal(t, []string{"a.md", "b.md", "c.md", "d.md"}, sources)
	for _, b := range bl {
		assert.NotEmpty(t, b.Context, "backlink context should be captured")
	}
}

func TestBacklinks_AliasResolution(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "notes/real.md", "---\naliases:\n  - Shorthand\n---\n# Real Name")
	indexContent(t, db, "ref.md", "# Ref\nsee [[shorthand]]")

	bl, err := db.Backlinks("notes/real.md")
	require.NoError(t, err)
	require.Len(t, bl, 1)
	assert.Equal(t, "ref.md", bl[0].SourcePath)
}

func TestResolve_NewestWinsOnTitleCollision(t *testing.T) {
	db := testDB(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	indexContentAt(t, db, "old/dup.md", "# Duplicate Title\nold", older)
	indexContentAt(t, db, "new/dup.md", "# Duplicate Title\nnew", newer)
	indexContentAt(t, db, "ref.md", "# Ref\n[[Duplicate Title]]", newer)

	bl, err := db.Backlinks("new/dup.md")
	require.NoError(t, err)
	require.Len(t, bl, 1, "title link must resolve to the most recently modified note")

	bl, err = db.Backlinks("old/dup.md")
	require.NoError(t, err)
	assert.Empty(t, bl)
}

func TestBrokenLinks(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "ok.md", "# OK\n[[exists]]")
	indexContent(t, db, "exists.md", "# Exists")
	indexContent(t, db, "bad.md", "# Bad\n[[does-not-exist]] and [[also-missing]]")

	broken, err := db.BrokenLinks()
	require.NoError(t, err)
	require.Len(t, broken, 2)
	assert.Equal(t, "bad.md", broken[0].SourcePath)
	assert.Equal(t, "also-missing", broken[0].TargetRef)
	assert.Equal(t, "does-not-exist", broken[1].TargetRef)
}

func TestOrphans(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "hub.md", "# Hub\n[[leaf]]")
	indexContent(t, db, "leaf.md", "# Leaf")
	indexContent(t, db, "alone.md", "# Alone\nno links either way")

	orphans, err := db.Orphans()
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "alone.md", orphans[0].Path)
}

func TestGraphData(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "a.md", "# A\n[[b]] [[missing]]")
	indexContent(t, db, "b.md", "# B")

	nodes, links, err := db.GraphData()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	// Unresolvable edge omitted, but out-degree still counts it.
	require.Len(t, links, 1)
	assert.Equal(t, checksum.NoteID("a.md"), links[0].Source)
	assert.Equal(t, checksum.NoteID("b.md"), links[0].Target)

	for _, n := range nodes {
		if n.Path == "a.md" {
			assert.Equal(t, 2, n.LinkCount)
			assert.Equal(t, 0, n.BacklinkCount)
		}
		if n.Path == "b.md" {
			assert.Equal(t, 0, n.LinkCount)
			assert.Equal(t, 1, n.BacklinkCount)
		}
	}
}

func TestPotentialMOCs(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "moc.md", "# MOC\n[[a]] [[b]] [[c]]")
	indexContent(t, db, "a.md", "# A")
	indexContent(t, db, "b.md", "# B")
	indexContent(t, db, "c.md", "# C")

	mocs, err := db.PotentialMOCs(3)
	require.NoError(t, err)
	require.Len(t, mocs, 1)
	assert.Equal(t, "moc.md", mocs[0].Path)
	assert.Equal(t, 3, mocs[0].LinkCount)

	mocs, err = db.PotentialMOCs(4)
	require.NoError(t, err)
	assert.Empty(t, mocs)
}

func TestUnlinkedMentions(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "topic.md", "# Widget Basics\nall about widgets")
	indexContent(t, db, "mentions.md", "# Notes\nI read widget basics yesterday, great intro")
	indexContent(t, db, "linked.md", "# Linked\nwidget basics again, see [[Widget Basics]]")

	mentions, err := db.UnlinkedMentions()
	require.NoError(t, err)
	require.Len(t, mentions, 1, "a note that already links must not be reported")
	assert.Equal(t, "topic.md", mentions[0].NotePath)
	assert.Equal(t, "mentions.md", mentions[0].MentionedInPath)
	assert.Contains(t, strings.ToLower(mentions[0].Context), "widget basics")
}

func TestUnlinkedMentions_ShortTitlesSkipped(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "ab.md", "# AB\nshort title")
	indexContent(t, db, "other.md", "# Other\nAB appears here without a link")

	mentions, err := db.UnlinkedMentions()
	require.NoError(t, err)
	assert.Empty(t, mentions, "titles under three runes are too noisy to scan")
}

func TestVaultHealth(t *testing.T) {
	db := testDB(t)
	indexContent(t, db, "a.md", "---\narchived: true\n---\n# A\n[[b]] [[nowhere]]\n#tag1\n```go\nx\n```")
	indexContent(t, db, "b.md", "# B\n10.0.0.1 #tag2")
	indexContent(t, db, "c.md", "# C")

	health, err := db.Health()
	require.NoError(t, err)

	assert.Equal(t, 3, health.TotalNotes)
	assert.Equal(t, 1, health.ArchivedNotes)
	assert.Equal(t, 2, health.TotalLinks)
	assert.InDelta(t, 2.0/3.0, health.AvgLinksPerNote, 1e-9)
	assert.Equal(t, 1, health.BrokenLinks)
	assert.Equal(t, 1, health.OrphanCount)
	assert.Equal(t, 2, health.TotalTags)
	assert.Equal(t, 1, health.TotalEntities)
	assert.Equal(t, 1, health.TotalCodeBlocks)
	assert.NotEmpty(t, health.MostConnected)
	assert.Len(t, health.RecentlyModified, 3)
}

func TestVaultHealth_EmptyVault(t *testing.T) {
	db := testDB(t)

	health, err := db.Health()
	require.NoError(t, err)
	assert.Zero(t, health.TotalNotes)
	assert.Zero(t, health.AvgLinksPerNote, "no notes means no division")
}
