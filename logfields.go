package pyext

import "log/slog"

// Canonical log field names.
const (
	KeyRunID    = "run_id"
	KeyTarget   = "target"
	KeyStage    = "stage"
	KeyState    = "state"
	KeyDir      = "dir"
	KeyPath     = "path"
	KeyDest     = "dest"
	KeyTier     = "tier"
	KeyCommand  = "command"
	KeyDuration = "duration_ms"
	KeyError    = "error"
)

// Attribute helpers, one per canonical key.
func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Target(name string) slog.Attr  { return slog.String(KeyTarget, name) }
func Stage(name string) slog.Attr   { return slog.String(KeyStage, name) }
func StateAttr(s State) slog.Attr   { return slog.String(KeyState, s.String()) }
func Dir(dir string) slog.Attr      { return slog.String(KeyDir, dir) }
func Path(path string) slog.Attr    { return slog.String(KeyPath, path) }
func Dest(path string) slog.Attr    { return slog.String(KeyDest, path) }
func Tier(t ArtifactTier) slog.Attr { return slog.String(KeyTier, t.String()) }
func DurationMS(ms int64) slog.Attr { return slog.Int64(KeyDuration, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
