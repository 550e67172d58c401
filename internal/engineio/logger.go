// Package engineio provides the engine's log sink: a thin zerolog
// wrapper that renders every line as "<timestamp>\t<message>", the
// wire format original_source's BacktestingEngine::output/write_log
// produce, plus a Debug-leveled path for the replay driver's
// per-chunk/per-batch progress lines.
package engineio

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the engine's output sink. Output lines are appended to an
// in-memory Lines() history (mirroring original_source's `self.logs`)
// in addition to being written through the zerolog writer.
type Logger struct {
	zl    zerolog.Logger
	lines []string
	now   func() time.Time
}

// New builds a Logger writing to w (os.Stdout if nil) with a plain
// console writer — no level prefixes, no color, just the message —
// since the required wire format is exactly "<timestamp>\t<message>".
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
	}
	return &Logger{
		zl:  zerolog.New(console).With().Logger(),
		now: time.Now,
	}
}

// Output writes an info-level progress/result line, matching
// BacktestingEngine::output. The line is always appended to Lines();
// the console write is skipped when the level is set above info.
func (l *Logger) Output(datetime time.Time, msg string) {
	line := formatLine(datetime, msg)
	l.lines = append(l.lines, line)
	l.zl.Info().Msg(line)
}

// Debug writes a line only visible when the engine's logger is
// configured at debug level or below; used for the dense per-chunk
// load_data and per-batch run_backtesting progress lines so a
// production run isn't flooded with them by default.
func (l *Logger) Debug(datetime time.Time, msg string) {
	line := formatLine(datetime, msg)
	l.zl.Debug().Msg(line)
}

// WriteLog appends a strategy-originated log line to history without
// echoing it through the console writer, matching write_log's
// separation from output (original_source keeps write_log's lines in
// `self.logs` only, while output always prints).
func (l *Logger) WriteLog(datetime time.Time, msg string) {
	l.lines = append(l.lines, formatLine(datetime, msg))
}

// Lines returns every line recorded so far, in emission order.
func (l *Logger) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// SetLevel adjusts the minimum zerolog level this logger emits at.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.zl = l.zl.Level(level)
}

func formatLine(datetime time.Time, msg string) string {
	return datetime.Format(time.RFC3339) + "\t" + msg
}
