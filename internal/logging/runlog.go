package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// RunLogPattern matches the per-run JSON logs written by OpenRunLog.
const RunLogPattern = "sweep-*.log"

// OpenRunLog tees base into a JSON log dedicated to a single sweep run. The
// returned close func must be called once the run finishes. An empty dir
// returns base unchanged.
func OpenRunLog(base *slog.Logger, dir, runID string, started time.Time) (*slog.Logger, string, func() error, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return base, "", func() error { return nil }, nil
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	path := filepath.Join(dir, fmt.Sprintf("sweep-%s-%s.log", started.UTC().Format("20060102T150405Z"), short))
	file, err := openLogFile(path)
	if err != nil {
		return base, "", func() error { return nil }, err
	}
	handler := newJSONHandler(file, slog.LevelDebug, false)
	return TeeLogger(base, handler).With(String(FieldRunID, runID)), path, file.Close, nil
}
