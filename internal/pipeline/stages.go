package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// StageName identifies a build stage in logs, metrics and results.
type StageName string

const (
	StageRevision StageName = "revision"
	StageData     StageName = "data"
	StageLayouts  StageName = "layouts"
	StageDiscover StageName = "discover"
	StageCollect  StageName = "collect"
	StageClean    StageName = "clean"
	StageRender   StageName = "render"
	StageAssets   StageName = "assets"
)

// StageTiming records how long a stage ran.
type StageTiming struct {
	Stage    StageName
	Duration time.Duration
}

// stageRunner times stages and reports them to the recorder.
type stageRunner struct {
	recorder metrics.Recorder
	timings  []StageTiming
}

func (r *stageRunner) run(ctx context.Context, stage StageName, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		r.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		return err
	}

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	r.timings = append(r.timings, StageTiming{Stage: stage, Duration: d})
	r.recorder.ObserveStageDuration(string(stage), d)

	switch {
	case err == nil:
		r.recorder.IncStageResult(string(stage), metrics.ResultSuccess)
		slog.Debug("Stage completed", logfields.Stage(string(stage)), logfields.DurationMS(float64(d.Microseconds())/1000))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		r.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	default:
		r.recorder.IncStageResult(string(stage), metrics.ResultFatal)
		slog.Debug("Stage failed", logfields.Stage(string(stage)), logfields.Error(err))
	}
	return err
}
