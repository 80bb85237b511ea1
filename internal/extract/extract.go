// Package extract turns raw note text into structured facts: tags, entities,
// code blocks, links, block anchors, and aliases. All functions are pure and
// perform no I/O; the index layer decides what to do with the results.
package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const (
	// cardPrefix routes a wikilink into card-link extraction instead of a
	// note backlink: [[card:REF]].
	cardPrefix = "card:"

	// linkContextWidth is the byte padding captured around a link match.
	linkContextWidth = 30

	// entityContextRunes bounds the stored source line for an entity.
	entityContextRunes = 100
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+\.md)\)`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	anchorRe   = regexp.MustCompile(`\^([A-Za-z0-9][A-Za-z0-9_-]*)\s*$`)

	// Entity patterns run per line in this order. The order is part of the
	// contract: consumers rely on ip < domain < cve < username < mention.
	ipRe       = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)
	domainRe   = regexp.MustCompile(`\b([a-zA-Z0-9][-a-zA-Z0-9]*\.[a-zA-Z]{2,}(?:\.[a-zA-Z]{2,})?)\b`)
	cveRe      = regexp.MustCompile(`\b(CVE-\d{4}-\d{4,})\b`)
	usernameRe = regexp.MustCompile(`\b((?:admin|root|user|guest|administrator)\w*)\b`)
	mentionRe  = regexp.MustCompile(`@(\w+)`)

	// Domain-like tokens ending in a source-file suffix are false positives.
	nonDomainSuffixes = []string{".md", ".rs", ".ts", ".go"}
)

// Entity is a typed token found in note content.
type Entity struct {
	Kind    string `json:"kind"` // ip, domain, cve, username, mention
	Value   string `json:"value"`
	Context string `json:"context"`
	Line    int    `json:"line"`
}

// CodeBlock is one fenced block with its original line span.
type CodeBlock struct {
	Language  string `json:"language,omitempty"`
	Content   string `json:"content"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Link is an outgoing reference toward another note, unresolved at
// extraction time.
type Link struct {
	Target  string `json:"target"`
	Context string `json:"context"`
}

// CardLink is a reference into the kanban collaborator, resolved against
// the card table at index time.
type CardLink struct {
	Ref     string `json:"ref"`
	Context string `json:"context"`
}

// Block is an addressable sub-note fragment marked with a ^anchor.
type Block struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Line    int    `json:"line"`
}

// FactSet is everything derived from one note's current text. Reindexing a
// note replaces its stored facts with a fresh FactSet wholesale.
type FactSet struct {
	Title      string
	Tags       []string
	Entities   []Entity
	CodeBlocks []CodeBlock
	Links      []Link
	CardLinks  []CardLink
	Blocks     []Block
	Aliases    []string
	Archived   bool
	Starred    bool
}

// Extract derives the full fact set for one note. Deterministic: the same
// (path, content, frontmatter) always yields the same facts.
func Extract(path, content string, fm map[string]any) *FactSet {
	fs := &FactSet{
		Title:      extractTitle(content, path),
		Tags:       extractTags(content, fm),
		Entities:   extractEntities(content),
		CodeBlocks: extractCodeBlocks(content),
		Blocks:     extractBlocks(content),
		Aliases:    extractAliases(fm),
		Archived:   boolField(fm, "archived"),
		Starred:    boolField(fm, "starred"),
	}
	fs.Links, fs.CardLinks = extractLinks(content)
	return fs
}

// extractTitle returns the first top-level heading, falling back to the
// file name without extension.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extractTags collects front-matter tags and inline #tags, deduplicated
// with case preserved.
func extractTags(content string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range stringListField(fm, "tags") {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	return out
}

// extractEntities runs the entity patterns over every line in fixed
// priority order: ip, domain, cve, username, mention.
func extractEntities(content string) []Entity {
	var out []Entity
	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		context := TruncateRunes(line, entityContextRunes)

		for _, m := range ipRe.FindAllStringSubmatch(line, -1) {
			out = append(out, Entity{Kind: "ip", Value: m[1], Context: context, Line: lineNum})
		}
		for _, m := range domainRe.FindAllStringSubmatch(line, -1) {
			if isSourceFileToken(m[1]) {
				continue
			}
			out = append(out, Entity{Kind: "domain", Value: m[1], Context: context, Line: lineNum})
		}
		for _, m := range cveRe.FindAllStringSubmatch(line, -1) {
			out = append(out, Entity{Kind: "cve", Value: m[1], Context: context, Line: lineNum})
		}
		for _, m := range usernameRe.FindAllStringSubmatch(line, -1) {
			out = append(out, Entity{Kind: "username", Value: m[1], Context: context, Line: lineNum})
		}
		for _, m := range mentionRe.FindAllStringSubmatch(line, -1) {
			out = append(out, Entity{Kind: "mention", Value: m[1], Context: context, Line: lineNum})
		}
	}
	return out
}

func isSourceFileToken(domain string) bool {
	for _, suffix := range nonDomainSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}

// extractCodeBlocks scans fenced blocks, toggling on ``` fence lines and
// capturing the optional language tag plus interior lines.
func extractCodeBlocks(content string) []CodeBlock {
	var blocks []CodeBlock
	var current CodeBlock
	var body []string
	inBlock := false

	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		if strings.HasPrefix(line, "```") {
			if inBlock {
				current.Content = strings.Join(body, "\n")
				current.EndLine = lineNum
				blocks = append(blocks, current)
				current = CodeBlock{}
				body = nil
				inBlock = false
			} else {
				inBlock = true
				current.StartLine = lineNum
				current.Language = strings.TrimSpace(line[3:])
			}
			continue
		}
		if inBlock {
			body = append(body, line)
		}
	}
	return blocks
}

// extractLinks finds wikilinks and markdown links to local documents.
// References under the card: namespace become card links instead.
func extractLinks(content string) ([]Link, []CardLink) {
	var links []Link
	var cards []CardLink

	appendRef := func(target string, matchStart, matchEnd int) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		context := ContextWindow(content, matchStart, matchEnd, linkContextWidth)
		if ref, ok := strings.CutPrefix(target, cardPrefix); ok {
			ref = strings.TrimSpace(ref)
			if ref != "" {
				cards = append(cards, CardLink{Ref: ref, Context: context})
			}
			return
		}
		links = append(links, Link{Target: target, Context: context})
	}

	for _, idx := range wikilinkRe.FindAllStringSubmatchIndex(content, -1) {
		appendRef(content[idx[2]:idx[3]], idx[0], idx[1])
	}
	for _, idx := range mdLinkRe.FindAllStringSubmatchIndex(content, -1) {
		appendRef(content[idx[4]:idx[5]], idx[0], idx[1])
	}
	return links, cards
}

// extractBlocks captures lines ending in a ^anchor token. The last line
// using a given anchor id within the note wins.
func extractBlocks(content string) []Block {
	byID := make(map[string]int)
	var out []Block

	for i, line := range strings.Split(content, "\n") {
		loc := anchorRe.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		b := Block{
			ID:      line[loc[2]:loc[3]],
			Content: strings.TrimSpace(line[:loc[0]]),
			Line:    i + 1,
		}
		if prev, ok := byID[b.ID]; ok {
			out[prev] = b
			continue
		}
		byID[b.ID] = len(out)
		out = append(out, b)
	}
	return out
}

// extractAliases reads the aliases/alias front-matter keys, scalar or list.
func extractAliases(fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range []string{"aliases", "alias"} {
		for _, a := range stringListField(fm, key) {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// stringListField coerces a front-matter value into a string slice,
// accepting both scalars and lists. Unparseable values yield nil.
func stringListField(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key]
	if !ok || raw == nil {
		return nil
	}
	vals, err := cast.ToStringSliceE(raw)
	if err != nil {
		if s, serr := cast.ToStringE(raw); serr == nil {
			return []string{s}
		}
		return nil
	}
	return vals
}

func boolField(fm map[string]any, key string) bool {
	if fm == nil {
		return false
	}
	return cast.ToBool(fm[key])
}
