package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// TerminalHost drives a session from raw stdin key presses and redraws a
// status line on stdout.
type TerminalHost struct {
	ctrl   *Controller
	in     *os.File
	out    io.Writer
	logger *slog.Logger

	keys    chan byte
	stopCh  chan struct{}
	stopped sync.Once
}

// NewTerminalHost creates a terminal host reading from in and writing to out.
func NewTerminalHost(ctrl *Controller, in *os.File, out io.Writer, logger *slog.Logger) *TerminalHost {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TerminalHost{
		ctrl:   ctrl,
		in:     in,
		out:    out,
		logger: logger,
		keys:   make(chan byte, 16),
		stopCh: make(chan struct{}),
	}
}

const terminalHelp = "1/2/3 genre  space play/stop  s stop  n next  g generate  +/- volume  q quit"

// Run puts stdin in raw mode and processes keys until quit or ctx is done.
// When stdin is not a terminal keys are still read, line buffered.
func (h *TerminalHost) Run(ctx context.Context) error {
	fd := int(h.in.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, oldState) }()
	}

	go h.readKeys()
	defer h.stop()

	fmt.Fprintf(h.out, "%s\r\n", terminalHelp)
	msg := ""
	h.redraw(msg)

	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			h.ctrl.Session.Stop()
			fmt.Fprint(h.out, "\r\n")
			return nil
		case b, ok := <-h.keys:
			if !ok {
				fmt.Fprint(h.out, "\r\n")
				return nil
			}
			a := KeyAction(b)
			if a == ActionNone {
				continue
			}
			var quit bool
			msg, quit = h.ctrl.Dispatch(a)
			h.redraw(msg)
			if quit {
				fmt.Fprint(h.out, "\r\n")
				return nil
			}
		case <-tick.C:
			// Auto-stop flips the playing flag without a key press.
			h.redraw(msg)
		}
	}
}

func (h *TerminalHost) readKeys() {
	defer close(h.keys)
	buf := make([]byte, 1)
	for {
		n, err := h.in.Read(buf)
		if n > 0 {
			select {
			case h.keys <- buf[0]:
			case <-h.stopCh:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("stdin closed", slog.Any("error", err))
			}
			return
		}
	}
}

func (h *TerminalHost) stop() {
	h.stopped.Do(func() { close(h.stopCh) })
}

func (h *TerminalHost) redraw(msg string) {
	// \x1b[2K clears the line so shorter messages leave no residue.
	fmt.Fprintf(h.out, "\r\x1b[2K%s  %s", StatusLine(h.ctrl.Session.Status()), msg)
}
