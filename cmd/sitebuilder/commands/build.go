package commands

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source      string `short:"s" help:"Source directory (overrides config)" type:"path"`
	Target      string `short:"t" help:"Target directory (overrides config)" type:"path"`
	Concurrency int    `short:"j" help:"Maximum concurrent renders; 0 uses GOMAXPROCS, -1 keeps the configured value" default:"-1"`
	Clean       bool   `help:"Empty the target directory before writing"`
	DryRun      bool   `name:"dry-run" help:"Render and resolve every item without writing output"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.Source, b.Target)
	if err != nil {
		return err
	}
	if b.Concurrency >= 0 {
		cfg.Build.Concurrency = b.Concurrency
	}
	if b.Clean {
		cfg.Clean = true
	}
	return RunBuild(g, cfg, b.DryRun)
}

// RunBuild builds the site described by cfg, recording history and metrics
// when the configuration enables them.
func RunBuild(g *Global, cfg *config.Config, dryRun bool) error {
	ctx := contextOf(g)
	opts := []pipeline.Option{pipeline.WithDryRun(dryRun)}

	if cfg.State.Path != "" && !dryRun {
		store, err := manifest.Open(cfg.State.Path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				slog.Warn("Failed to close state database", logfields.Error(cerr))
			}
		}()
		opts = append(opts, pipeline.WithManifest(store))
	}

	var recorder *metrics.PrometheusRecorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, pipeline.WithRecorder(recorder))
	}

	res, err := pipeline.New(cfg, opts...).Build(ctx)

	if recorder != nil {
		if werr := recorder.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(cfg.Metrics.Textfile), logfields.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Dry run: %d items rendered, nothing written\n", res.Items)
		return nil
	}
	fmt.Printf("Built %d items into %s (%d changed, %d assets) in %s\n",
		len(res.Outputs), cfg.Target, len(res.Changed), res.Assets, res.Duration.Round(time.Millisecond))
	return nil
}
