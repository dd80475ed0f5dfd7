package host

import (
	"errors"
	"fmt"
	"log/slog"

	"retrosynth/internal/session"
	"retrosynth/internal/synth"
)

// Action is a user command shared by every host.
type Action int

const (
	ActionNone Action = iota
	ActionChiptune
	ActionArcade
	ActionRpg
	ActionToggle
	ActionStop
	ActionSkip
	ActionGenerate
	ActionVolumeUp
	ActionVolumeDown
	ActionCopy
	ActionQuit
)

// ErrNoWindow is returned by RunWindow in headless builds.
var ErrNoWindow = errors.New("window host not compiled in (headless build)")

// VolumeStep is the change per volume key press.
const VolumeStep = 5

// KeyAction maps a terminal byte to an action.
func KeyAction(b byte) Action {
	switch b {
	case '1':
		return ActionChiptune
	case '2':
		return ActionArcade
	case '3':
		return ActionRpg
	case ' ', 'p', 'P':
		return ActionToggle
	case 's', 'S':
		return ActionStop
	case 'n', 'N':
		return ActionSkip
	case 'g', 'G':
		return ActionGenerate
	case '+', '=':
		return ActionVolumeUp
	case '-', '_':
		return ActionVolumeDown
	case 'c', 'C':
		return ActionCopy
	case 'q', 'Q', 0x03, 0x1b: // Ctrl-C and Esc arrive as bytes in raw mode
		return ActionQuit
	}
	return ActionNone
}

// Controller applies actions to a session and describes the outcome.
type Controller struct {
	Session *session.Session
	Logger  *slog.Logger
	// Copy puts text on the clipboard. Nil disables ActionCopy.
	Copy func(text string) error
}

// Dispatch applies a and returns a one-line message for the status bar.
// quit is true for ActionQuit.
func (c *Controller) Dispatch(a Action) (msg string, quit bool) {
	s := c.Session
	switch a {
	case ActionChiptune, ActionArcade, ActionRpg:
		g := synth.Genres[a-ActionChiptune]
		if err := s.SelectGenre(g); err != nil {
			return c.fail("select genre", err), false
		}
		return "genre: " + session.InfoFor(g).Name, false
	case ActionToggle:
		playing, err := s.TogglePlay()
		if err != nil {
			return c.fail("play", err), false
		}
		if playing {
			return "playing " + session.InfoFor(s.Genre()).Name, false
		}
		if !s.Status().AudioReady {
			return "no audio device", false
		}
		return "stopped", false
	case ActionStop:
		s.Stop()
		return "stopped", false
	case ActionSkip:
		next, _, err := s.Skip()
		if err != nil {
			return c.fail("skip", err), false
		}
		return "next: " + next.Title, false
	case ActionGenerate:
		t := s.GenerateTrack()
		return fmt.Sprintf("added %s (%s)", t.Title, t.Duration), false
	case ActionVolumeUp:
		return fmt.Sprintf("volume %d%%", s.AdjustVolume(VolumeStep)), false
	case ActionVolumeDown:
		return fmt.Sprintf("volume %d%%", s.AdjustVolume(-VolumeStep)), false
	case ActionCopy:
		if c.Copy == nil {
			return "clipboard unavailable", false
		}
		label := s.NowPlayingLabel()
		if err := c.Copy(label); err != nil {
			return c.fail("copy", err), false
		}
		return "copied: " + label, false
	case ActionQuit:
		s.Stop()
		return "bye", true
	}
	return "", false
}

func (c *Controller) fail(op string, err error) string {
	if c.Logger != nil && !synth.IsInvalidArgument(err) {
		c.Logger.Warn(op+" failed", slog.Any("error", err))
	}
	if errors.Is(err, synth.ErrDeviceUnavailable) {
		return "no audio device (continuing without sound)"
	}
	return op + ": " + err.Error()
}

// StatusLine renders the session state as one line of text.
func StatusLine(st session.Status) string {
	state := "stopped"
	if st.Playing {
		state = "playing"
	}
	audio := "audio on"
	if !st.AudioReady {
		audio = "audio off"
	}
	return fmt.Sprintf("[%s] %-8s vol %3d%%  %s", st.GenreName, state, st.Volume, audio)
}
