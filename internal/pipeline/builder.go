// Package pipeline runs a complete site build: collection of every source
// document, then parallel render, reference resolution and output.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/collect"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/data"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/resolve"
	"git.home.luguber.info/inful/sitebuilder/internal/revision"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/tmplcache"
)

// AssetsURLDir is where the assets directory is copied inside the target.
const AssetsURLDir = "assets"

// Builder runs builds for one configuration.
type Builder struct {
	cfg      *config.Config
	recorder metrics.Recorder
	store    *manifest.Store
	dryRun   bool
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder reports stage and build metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithManifest records each build and its outputs in s.
func WithManifest(s *manifest.Store) Option {
	return func(b *Builder) { b.store = s }
}

// WithDryRun renders and resolves everything but writes nothing.
func WithDryRun(dry bool) Option {
	return func(b *Builder) { b.dryRun = dry }
}

func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, recorder: metrics.NoopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result summarises a finished build.
type Result struct {
	BuildID  string
	Index    *site.Index
	Items    int
	Outputs  []string
	Changed  []string
	Assets   int
	Stages   []StageTiming
	Cache    tmplcache.Stats
	Workers  int
	Duration time.Duration
}

// Collect runs the collection half of a build and returns the finalized
// index together with every forwarded item.
func (b *Builder) Collect(ctx context.Context) (*site.Index, []*site.Item, error) {
	runner := &stageRunner{recorder: b.recorder}
	info, err := b.buildInfo(ctx, runner, uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	return b.collect(ctx, runner, info)
}

// Build runs a full build. The first failing item aborts the build; outputs
// already written are left in place.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	runner := &stageRunner{recorder: b.recorder}
	res := &Result{BuildID: uuid.NewString()}
	started := b.now()
	log := slog.With(logfields.BuildID(res.BuildID))
	log.Info("Build started", slog.String("source", b.cfg.Source), slog.String("target", b.cfg.Target), slog.Bool("dry_run", b.dryRun))

	var recorded bool
	info, err := b.buildInfo(ctx, runner, res.BuildID)
	info.Started = started
	if err == nil {
		recorded, err = b.beginManifest(ctx, info)
	}
	if err == nil {
		err = b.build(ctx, runner, info, res)
	}

	res.Stages = runner.timings
	res.Duration = time.Since(started)
	b.finish(ctx, log, res, recorded, err)
	return res, err
}

func (b *Builder) build(ctx context.Context, runner *stageRunner, info site.BuildInfo, res *Result) error {
	idx, items, err := b.collect(ctx, runner, info)
	if err != nil {
		return err
	}
	res.Index = idx
	res.Items = len(items)

	writer := output.NewWriter(b.cfg.Target)
	if b.cfg.Clean && !b.dryRun {
		if err := runner.run(ctx, StageClean, func(context.Context) error { return writer.Clean() }); err != nil {
			return err
		}
	}

	previous := b.previousFingerprints(ctx, res.BuildID)
	cache := tmplcache.New(render.NewTextEngine(b.cfg.Site.BaseURL))
	err = runner.run(ctx, StageRender, func(ctx context.Context) error {
		return b.renderAll(ctx, idx, items, cache, writer, previous, res)
	})
	res.Cache = cache.Stats()
	b.recorder.SetTemplateCache(res.Cache.Hits, res.Cache.Misses, res.Cache.Entries)
	if err != nil {
		return err
	}

	if b.dryRun {
		return nil
	}
	return runner.run(ctx, StageAssets, func(context.Context) error {
		n, err := writer.CopyTree(b.cfg.AssetsDir(), AssetsURLDir)
		res.Assets = n
		return err
	})
}

func (b *Builder) buildInfo(ctx context.Context, runner *stageRunner, id string) (site.BuildInfo, error) {
	info := site.BuildInfo{ID: id, Started: b.now()}
	err := runner.run(ctx, StageRevision, func(context.Context) error {
		rev, ok, err := revision.Lookup(b.cfg.Source)
		if err != nil {
			// Revision is informational only.
			slog.Warn("Unable to read source revision", logfields.Path(b.cfg.Source), logfields.Error(err))
			return nil
		}
		if ok {
			info.Commit = rev.Commit
			info.CommitDate = rev.Date
			slog.Debug("Source revision", logfields.Commit(rev.Short), slog.String("branch", rev.Branch))
		}
		return nil
	})
	return info, err
}

func (b *Builder) collect(ctx context.Context, runner *stageRunner, info site.BuildInfo) (*site.Index, []*site.Item, error) {
	c := collect.New(site.Paths{
		Source:  b.cfg.Source,
		Target:  b.cfg.Target,
		Layouts: b.cfg.LayoutsDir(),
		Images:  b.cfg.ImagesDir(),
	})
	c.SetBuild(info, b.cfg.Site.BaseURL)

	if err := runner.run(ctx, StageData, func(context.Context) error {
		d, err := data.LoadFiles(b.cfg.DataFiles(), true)
		if err != nil {
			return err
		}
		c.SetData(d)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	if err := runner.run(ctx, StageLayouts, func(context.Context) error {
		layouts, err := source.LoadLayouts(b.cfg.LayoutsDir())
		if err != nil {
			return err
		}
		c.SetLayouts(layouts)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	var paths []string
	if err := runner.run(ctx, StageDiscover, func(ctx context.Context) error {
		var err error
		paths, err = source.NewDiscovery(b.cfg.Source, b.cfg.Extensions, b.cfg.ExcludedDirs()).Discover(ctx)
		return err
	}); err != nil {
		return nil, nil, err
	}

	var (
		idx   *site.Index
		items []*site.Item
	)
	if err := runner.run(ctx, StageCollect, func(ctx context.Context) error {
		for _, rel := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			it, err := source.ReadItem(b.cfg.Source, rel)
			if err != nil {
				return err
			}
			if _, err := c.Add(it); err != nil {
				return err
			}
		}
		idx, items = c.Finish()
		return nil
	}); err != nil {
		return nil, nil, err
	}

	b.recorder.AddItems(site.BucketPages, len(idx.Pages))
	b.recorder.AddItems(site.BucketPosts, len(idx.Posts))
	slog.Info("Collected content",
		logfields.Count(len(items)),
		slog.Int("pages", len(idx.Pages)),
		slog.Int("posts", len(idx.Posts)),
		slog.Int("layouts", len(idx.Layouts)))
	return idx, items, nil
}

func (b *Builder) workers() int {
	if n := b.cfg.Build.Concurrency; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// renderAll renders, resolves and writes every item on a bounded worker
// pool. Workers operate on clones so the index keeps its collected bodies.
func (b *Builder) renderAll(ctx context.Context, idx *site.Index, items []*site.Item, cache *tmplcache.Cache,
	writer *output.Writer, previous map[string]string, res *Result) error {
	renderer := render.NewRenderer(cache, idx)
	resolver := resolve.New(idx,
		resolve.WithPolicy(resolve.Policy{
			AllowedTags:       b.cfg.Sanitize.AllowedTags,
			AllowedAttributes: b.cfg.Sanitize.AllowedAttributes,
		}),
		resolve.WithObserver(b.recorder))

	res.Workers = b.workers()
	b.recorder.SetRenderConcurrency(res.Workers)
	slog.Debug("Rendering items", logfields.Count(len(items)), logfields.Workers(res.Workers))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(res.Workers)
	for _, it := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			work := it.Clone()
			if err := renderer.Render(work); err != nil {
				return err
			}
			if err := resolver.Resolve(work); err != nil {
				return err
			}
			rel := work.OutputPath()
			changed, err := b.emit(gctx, writer, res.BuildID, rel, work.Body, previous)
			if err != nil {
				return err
			}

			mu.Lock()
			res.Outputs = append(res.Outputs, rel)
			if changed {
				res.Changed = append(res.Changed, rel)
			}
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	sort.Strings(res.Outputs)
	sort.Strings(res.Changed)
	return err
}

// emit writes one rendered item and records it. It reports whether the
// output differs from the last successful build.
func (b *Builder) emit(ctx context.Context, writer *output.Writer, buildID, rel string, body []byte, previous map[string]string) (bool, error) {
	if !b.dryRun {
		full, err := writer.Write(rel, body)
		if err != nil {
			return false, err
		}
		slog.Debug("Wrote output", logfields.Output(full))
	}

	fp := manifest.Fingerprint(body)
	if b.store != nil && !b.dryRun {
		if _, err := b.store.RecordOutput(ctx, buildID, rel, body); err != nil {
			return false, err
		}
	}
	return previous[rel] != fp, nil
}

func (b *Builder) previousFingerprints(ctx context.Context, buildID string) map[string]string {
	if b.store == nil {
		return nil
	}
	fps, _, err := b.store.LastSuccessful(ctx, buildID)
	if err != nil {
		slog.Warn("Unable to read previous build", logfields.Error(err))
		return nil
	}
	return fps
}

func (b *Builder) beginManifest(ctx context.Context, info site.BuildInfo) (bool, error) {
	if b.store == nil || b.dryRun {
		return false, nil
	}
	err := b.store.BeginBuild(ctx, manifest.Build{ID: info.ID, Started: info.Started, Commit: info.Commit})
	return err == nil, err
}

func (b *Builder) finish(ctx context.Context, log *slog.Logger, res *Result, recorded bool, err error) {
	outcome, status := metrics.OutcomeSuccess, manifest.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome, status = metrics.OutcomeCanceled, manifest.StatusCanceled
	default:
		outcome, status = metrics.OutcomeFailed, manifest.StatusFailed
	}
	b.recorder.ObserveBuildDuration(res.Duration)
	b.recorder.IncBuildOutcome(outcome)

	if recorded {
		// Record the outcome even when ctx is canceled.
		if ferr := b.store.FinishBuild(context.WithoutCancel(ctx), res.BuildID, status, res.Items, err); ferr != nil {
			log.Warn("Unable to record build", logfields.Error(ferr))
		}
	}

	if err != nil {
		log.Error("Build failed", logfields.Error(err), logfields.DurationMS(float64(res.Duration.Milliseconds())))
		return
	}
	log.Info("Build completed",
		logfields.Count(len(res.Outputs)),
		slog.Int("changed", len(res.Changed)),
		slog.Int("assets", res.Assets),
		slog.Int64("template_cache_hits", res.Cache.Hits),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
}
