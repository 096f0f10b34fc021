// Package parser converts notes to and from Markdown with YAML frontmatter.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/notes"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

const delim = "---"

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Tags        []string
	Title       string
	Pinned      bool
}

type frontmatter struct {
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags"`
	Pinned  bool     `yaml:"pinned"`
	Created string   `yaml:"created"`
	Updated string   `yaml:"updated"`
}

// Render writes n as a Markdown document: frontmatter, a blank line, then the content.
func Render(n models.Note) ([]byte, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	fm, err := yaml.Marshal(frontmatter{
		Title:   n.Title,
		Tags:    tags,
		Pinned:  n.Pinned,
		Created: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Updated: n.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("parser: render: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// Parse extracts frontmatter, body, title, tags and pin state from raw Markdown.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	pinned, _ := fm["pinned"].(bool)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
		Pinned:      pinned,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects the frontmatter "tags" field, then inline #tags from body.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(t string) {
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := fm["tags"].(type) {
	case []interface{}:
		var raw []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
		for _, t := range notes.CleanTags(raw) {
			add(t)
		}
	case string:
		for _, t := range notes.ParseTags(v) {
			add(t)
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
