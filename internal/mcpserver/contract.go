package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Othala Note Format Contract

Every Markdown note stored in Othala MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – first # heading wins otherwise
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
aliases:                            # OPTIONAL – alternate names for link resolution
  - alt-name
archived: false                     # OPTIONAL – archived notes are hidden from search
starred: false                      # OPTIONAL
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use [[card:Card Title]] to reference a kanban card.
End a line with ^anchor-id to make that line addressable as a block.
` + "```" + `

## Rules

1. **YAML frontmatter is optional** but when present the ` + "```" + `---` + "```" + ` fences must
   be the first thing in the file (no leading blank lines).
2. **The title** is the first ` + "`" + `# ` + "`" + ` heading in the body; without one, the
   filename stem is used.
3. **Tags** may live in frontmatter or inline as ` + "`" + `#tag` + "`" + ` tokens; both are indexed.
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension, path separators OK: ` + "`" + `[[folder/note]]` + "`" + `).
   Titles and aliases also resolve, case-insensitively.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.
7. **Fenced code blocks** are indexed separately and searchable with the
   ` + "`" + `code:` + "`" + ` query prefix; always tag the language when known.
8. **Entities** (IPs, domains, CVE ids, @mentions) are extracted automatically
   from the body; no special markup is needed.

## Example

` + "```" + `markdown
---
tags:
  - incident
  - project-x
aliases:
  - ir-2025-01
---

# Incident review 2025-01-20

Affected host 10.0.4.17, related to [[CVE-2024-3094 notes]].

` + "```" + `bash
grep -r backdoor /usr/lib
` + "```" + `

Follow-up owned by @alice. See [[card:Rotate credentials]]. ^followup
` + "```" + `
`
