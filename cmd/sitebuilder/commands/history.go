package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int    `short:"n" help:"Number of builds to show" default:"20"`
	Build  string `help:"Show the files written by one build"`
	Format string `short:"f" help:"Output format (table, markdown, csv)" enum:"table,markdown,csv" default:"table"`

	out io.Writer
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, "", "")
	if err != nil {
		return err
	}
	w := h.out
	if w == nil {
		w = os.Stdout
	}
	if cfg.State.Path == "" {
		return ferrors.ConfigError("build history is disabled (state.path is empty)").Build()
	}
	if _, err := os.Stat(cfg.State.Path); os.IsNotExist(err) {
		_, _ = fmt.Fprintln(w, "No builds recorded yet")
		return nil
	}

	store, err := manifest.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("Failed to close state database", logfields.Error(cerr))
		}
	}()

	ctx := contextOf(g)
	if h.Build != "" {
		outputs, err := store.Outputs(ctx, h.Build)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(outputs))
		for _, o := range outputs {
			rows = append(rows, table.Row{o.Path, o.Bytes, o.Fingerprint})
		}
		renderTable(w, h.Format, table.Row{"Path", "Bytes", "Fingerprint"}, rows)
		return nil
	}

	builds, err := store.ListBuilds(ctx, h.Limit)
	if err != nil {
		return err
	}
	rows := make([]table.Row, 0, len(builds))
	for _, b := range builds {
		rows = append(rows, table.Row{
			b.ID, b.Started.Local().Format(time.DateTime), b.Status, shortCommit(b.Commit),
			b.Items, b.Outputs, buildDuration(b), b.Error,
		})
	}
	renderTable(w, h.Format, table.Row{"Build", "Started", "Status", "Commit", "Items", "Outputs", "Duration", "Error"}, rows)
	return nil
}

func shortCommit(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func buildDuration(b manifest.Build) string {
	if b.Finished.IsZero() {
		return ""
	}
	return b.Finished.Sub(b.Started).Round(time.Millisecond).String()
}
