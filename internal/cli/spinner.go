package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Spinner redraws one status line on stderr while a slow step runs. It
// stops on Stop or when the command context ends, whichever comes first.
type Spinner struct {
	label string
	w     io.Writer
	ctx   context.Context

	quit     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func newSpinner(ctx context.Context, label string) *Spinner {
	return &Spinner{
		label: label,
		w:     os.Stderr,
		ctx:   ctx,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	s.started = true
	go s.loop()
}

func (s *Spinner) loop() {
	defer close(s.done)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()
	for frame := 0; ; frame++ {
		select {
		case <-s.quit:
		case <-s.ctx.Done():
		case <-tick.C:
			glyph := string(spinnerFrames[frame%len(spinnerFrames)])
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.label))
			continue
		}
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.label)+4))
		return
	}
}

// Stop clears the status line and waits for the redraw goroutine. Extra
// calls are no-ops.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.started {
			<-s.done
		}
	})
}

func (s *Spinner) StopWithSuccess(msg string) {
	s.Stop()
	printSuccess("%s", msg)
}

func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	printError("%s", msg)
}

// Cancelled distinguishes an interrupted command from a finished one.
func (s *Spinner) Cancelled() bool { return s.ctx.Err() != nil }
