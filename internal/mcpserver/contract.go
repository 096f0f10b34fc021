package mcpserver

// MarkdownFormat describes the document accepted by import and produced by
// export_note.
const MarkdownFormat = `# Note Markdown Format

A note exported as Markdown is YAML frontmatter followed by the note content.

` + "```" + `markdown
---
title: Weekly shopping      # may be empty; shown as "Untitled"
tags:                       # YAML list, or a comma-separated string
  - home
  - errands
pinned: false
created: 2025-01-20T09:30:00Z
updated: 2025-01-21T18:02:11.5Z
---

milk, eggs, #urgent bread
` + "```" + `

## Rules

1. The frontmatter fences must be the first thing in the document.
2. Without a ` + "`" + `title` + "`" + `, the first ` + "`" + `# heading` + "`" + ` of the body is used.
3. Tags are case-sensitive. Inline ` + "`" + `#tags` + "`" + ` in the body are added after the
   frontmatter tags; duplicates are dropped.
4. ` + "`" + `created` + "`" + ` and ` + "`" + `updated` + "`" + ` are informational. An imported note gets a
   fresh id and fresh timestamps.
5. Invalid YAML is not an error: the whole document becomes the content.
`
