package internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/starford/tidenotes/internal/mcpserver"
	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/query"
	"github.com/starford/tidenotes/internal/reltime"
	"github.com/starford/tidenotes/internal/session"
)

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	b, err := openBackend(app.config, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(b.svc, app.version).ServeStdio()
}

// List prints the notes matching q and tag, pinned first, with relative update times.
func List(ctx context.Context, q, tag string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	b, err := openBackend(app.config, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	items := b.svc.List(ctx, q, tag)
	groups := query.GroupByPin(noteSlice(items))
	now := time.Now()

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PIN\tTITLE\tTAGS\tUPDATED\tID")
	for _, n := range append(groups.Pinned, groups.Others...) {
		pin := ""
		if n.Pinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			pin, n.DisplayTitle(), joinTags(n.Tags), reltime.Ago(n.UpdatedAt, now), n.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "%d of %d notes\n", len(items), len(b.svc.List(ctx, "", "")))
	return nil
}

func noteSlice(items []session.Item) []models.Note {
	out := make([]models.Note, len(items))
	for i, it := range items {
		out[i] = it.Note
	}
	return out
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}
