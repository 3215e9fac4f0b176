package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a leveled logger that prefixes each line with a
// wall-clock time such as "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})
	l.SetLevel(level)
	return l
}

// progress times one long command step, such as an import or a tile
// export, and logs it when the step finishes.
type progress struct {
	logger  *log.Logger
	started time.Time
}

func newProgress(l *log.Logger) progress {
	return progress{logger: l, started: time.Now()}
}

// done logs msg with the elapsed time: "Exported 42 tiles (1.234s)".
func (p progress) done(msg string, keyvals ...any) {
	elapsed := time.Since(p.started).Round(time.Millisecond)
	p.logger.Info(msg+" ("+elapsed.String()+")", keyvals...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext falls back to log.Default for contexts that did not
// pass through the root command.
func loggerFromContext(ctx context.Context) *log.Logger {
	l, ok := ctx.Value(loggerKey{}).(*log.Logger)
	if !ok {
		return log.Default()
	}
	return l
}
