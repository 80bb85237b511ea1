package extract

import (
	"strings"
	"testing"
)

func TestExtractTitle_Heading(t *testing.T) {
	fs := Extract("notes/a.md", "preamble\n# Real Title\nbody", nil)
	if fs.Title != "Real Title" {
		t.Errorf("title = %q, want %q", fs.Title, "Real Title")
	}
}

func TestExtractTitle_FallbackToFilename(t *testing.T) {
	fs := Extract("notes/meeting-notes.md", "no heading here", nil)
	if fs.Title != "meeting-notes" {
		t.Errorf("title = %q, want %q", fs.Title, "meeting-notes")
	}
}

func TestExtractTags_FrontmatterAndInline(t *testing.T) {
	fm := map[string]any{"tags": []any{"alpha", "beta"}}
	fs := Extract("a.md", "text #beta and #gamma\nmore #alpha", fm)

	want := []string{"alpha", "beta", "gamma"}
	if len(fs.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", fs.Tags, want)
	}
	for i, tag := range want {
		if fs.Tags[i] != tag {
			t.Errorf("tags[%d] = %q, want %q", i, fs.Tags[i], tag)
		}
	}
}

func TestExtractTags_ScalarFrontmatter(t *testing.T) {
	fs := Extract("a.md", "", map[string]any{"tags": "solo"})
	if len(fs.Tags) != 1 || fs.Tags[0] != "solo" {
		t.Errorf("tags = %v, want [solo]", fs.Tags)
	}
}

func TestExtractEntities_OrderAndKinds(t *testing.T) {
	content := "Scanner hit 192.168.1.10 on example.com via CVE-2024-12345 by admin_user @alice"
	fs := Extract("a.md", content, nil)

	kinds := make([]string, len(fs.Entities))
	for i, e := range fs.Entities {
		kinds[i] = e.Kind
	}
	want := []string{"ip", "domain", "cve", "username", "mention"}
	if len(kinds) != len(want) {
		t.Fatalf("entity kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("entity[%d].Kind = %q, want %q", i, kinds[i], want[i])
		}
	}
	if fs.Entities[0].Value != "192.168.1.10" {
		t.Errorf("ip value = %q", fs.Entities[0].Value)
	}
	if fs.Entities[4].Value != "alice" {
		t.Errorf("mention value = %q", fs.Entities[4].Value)
	}
	for _, e := range fs.Entities {
		if e.Line != 1 {
			t.Errorf("entity %q line = %d, want 1", e.Value, e.Line)
		}
		if e.Context == "" {
			t.Errorf("entity %q has empty context", e.Value)
		}
	}
}

func TestExtractEntities_SourceFileNotDomain(t *testing.T) {
	fs := Extract("a.md", "see parser.go and schema.rs and readme.md", nil)
	for _, e := range fs.Entities {
		if e.Kind == "domain" {
			t.Errorf("source file token extracted as domain: %q", e.Value)
		}
	}
}

func TestExtractCodeBlocks(t *testing.T) {
	content := "intro\n```bash\nls -la\npwd\n```\ntext\n```\nplain\n```\n"
	fs := Extract("a.md", content, nil)

	if len(fs.CodeBlocks) != 2 {
		t.Fatalf("code blocks = %d, want 2", len(fs.CodeBlocks))
	}
	first := fs.CodeBlocks[0]
	if first.Language != "bash" {
		t.Errorf("language = %q, want bash", first.Language)
	}
	if first.Content != "ls -la\npwd" {
		t.Errorf("content = %q", first.Content)
	}
	if first.StartLine != 2 || first.EndLine != 5 {
		t.Errorf("span = %d..%d, want 2..5", first.StartLine, first.EndLine)
	}
	if fs.CodeBlocks[1].Language != "" {
		t.Errorf("second language = %q, want empty", fs.CodeBlocks[1].Language)
	}
}

func TestExtractLinks_WikiAndMarkdown(t *testing.T) {
	content := "see [[other-note]] and [[target|display]] plus [md](local/doc.md)"
	fs := Extract("a.md", content, nil)

	if len(fs.Links) != 3 {
		t.Fatalf("links = %+v, want 3", fs.Links)
	}
	if fs.Links[0].Target != "other-note" {
		t.Errorf("links[0] = %q", fs.Links[0].Target)
	}
	if fs.Links[1].Target != "target" {
		t.Errorf("alias link target = %q, want target", fs.Links[1].Target)
	}
	if fs.Links[2].Target != "local/doc.md" {
		t.Errorf("md link target = %q", fs.Links[2].Target)
	}
	if !strings.Contains(fs.Links[0].Context, "[[other-note]]") {
		t.Errorf("context %q should contain the match", fs.Links[0].Context)
	}
}

func TestExtractLinks_CardNamespace(t *testing.T) {
	fs := Extract("a.md", "track [[card:Rotate keys]] and [[normal]]", nil)

	if len(fs.CardLinks) != 1 || fs.CardLinks[0].Ref != "Rotate keys" {
		t.Fatalf("card links = %+v, want one ref 'Rotate keys'", fs.CardLinks)
	}
	if len(fs.Links) != 1 || fs.Links[0].Target != "normal" {
		t.Errorf("links = %+v, card ref must not appear as note link", fs.Links)
	}
}

func TestExtractLinks_UnicodeContextBoundary(t *testing.T) {
	// Multi-byte characters right at the context window edge must not be split.
	content := strings.Repeat("я", 40) + "[[цель]]" + strings.Repeat("ё", 40)
	fs := Extract("a.md", content, nil)

	if len(fs.Links) != 1 {
		t.Fatalf("links = %d, want 1", len(fs.Links))
	}
	if !strings.Contains(fs.Links[0].Context, "[[цель]]") {
		t.Errorf("context lost the match: %q", fs.Links[0].Context)
	}
	for _, r := range fs.Links[0].Context {
		if r == '�' {
			t.Fatal("context contains a replacement rune; boundary was split")
		}
	}
}

func TestExtractBlocks_LastWriterWins(t *testing.T) {
	content := "first line ^anchor\nmiddle\nsecond line ^anchor\nother ^b2"
	fs := Extract("a.md", content, nil)

	if len(fs.Blocks) != 2 {
		t.Fatalf("blocks = %+v, want 2", fs.Blocks)
	}
	if fs.Blocks[0].ID != "anchor" || fs.Blocks[0].Content != "second line" {
		t.Errorf("duplicate anchor should keep last occurrence, got %+v", fs.Blocks[0])
	}
	if fs.Blocks[0].Line != 3 {
		t.Errorf("line = %d, want 3", fs.Blocks[0].Line)
	}
}

func TestExtractAliases(t *testing.T) {
	fm := map[string]any{"aliases": []any{"one", "two"}, "alias": "three"}
	fs := Extract("a.md", "", fm)
	if len(fs.Aliases) != 3 {
		t.Errorf("aliases = %v, want 3", fs.Aliases)
	}
}

func TestExtractFlags(t *testing.T) {
	fs := Extract("a.md", "", map[string]any{"archived": true, "starred": "true"})
	if !fs.Archived || !fs.Starred {
		t.Errorf("archived=%v starred=%v, want both true", fs.Archived, fs.Starred)
	}

	fs = Extract("a.md", "", nil)
	if fs.Archived || fs.Starred {
		t.Error("flags must default to false")
	}
}

func TestExtractDeterministic(t *testing.T) {
	content := "# T\n#tag [[link]] 10.0.0.1 @bob\n```go\nx\n```\nline ^a"
	a := Extract("d.md", content, map[string]any{"tags": "t2"})
	b := Extract("d.md", content, map[string]any{"tags": "t2"})

	if a.Title != b.Title || len(a.Tags) != len(b.Tags) ||
		len(a.Entities) != len(b.Entities) || len(a.Links) != len(b.Links) {
		t.Error("same input must yield same facts")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("привет мир", 6); got != "привет" {
		t.Errorf("TruncateRunes = %q", got)
	}
	if got := TruncateRunes("short", 100); got != "short" {
		t.Errorf("TruncateRunes = %q", got)
	}
}

func TestWindowBounds_Clamped(t *testing.T) {
	s := "abc"
	lo, hi := WindowBounds(s, 1, 2, 100)
	if lo != 0 || hi != len(s) {
		t.Errorf("bounds = %d..%d, want 0..%d", lo, hi, len(s))
	}
}
