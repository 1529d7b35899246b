package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyLayout     = "layout"
	KeyReference  = "reference"
	KeyCount      = "count"
	KeyCommit     = "commit"
	KeyWorkers    = "workers"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Bucket(b string) slog.Attr        { return slog.String(KeyBucket, b) }
func Key(k string) slog.Attr           { return slog.String(KeyKey, k) }
func Layout(name string) slog.Attr     { return slog.String(KeyLayout, name) }
func Reference(ref string) slog.Attr   { return slog.String(KeyReference, ref) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Commit(hash string) slog.Attr     { return slog.String(KeyCommit, hash) }
func Workers(n int) slog.Attr          { return slog.Int(KeyWorkers, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
