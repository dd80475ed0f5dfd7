//go:build !headless

package host

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.design/x/clipboard"

	"retrosynth/internal/session"
)

const (
	WindowWidth  = 640
	WindowHeight = 360
	windowTitle  = "Retro Synth"
)

var windowKeys = map[glfw.Key]Action{
	glfw.Key1:          ActionChiptune,
	glfw.Key2:          ActionArcade,
	glfw.Key3:          ActionRpg,
	glfw.KeySpace:      ActionToggle,
	glfw.KeyP:          ActionToggle,
	glfw.KeyS:          ActionStop,
	glfw.KeyN:          ActionSkip,
	glfw.KeyG:          ActionGenerate,
	glfw.KeyUp:         ActionVolumeUp,
	glfw.KeyEqual:      ActionVolumeUp,
	glfw.KeyKPAdd:      ActionVolumeUp,
	glfw.KeyDown:       ActionVolumeDown,
	glfw.KeyMinus:      ActionVolumeDown,
	glfw.KeyKPSubtract: ActionVolumeDown,
	glfw.KeyC:          ActionCopy,
	glfw.KeyEscape:     ActionQuit,
	glfw.KeyQ:          ActionQuit,
}

type input struct {
	prevKeys map[glfw.Key]bool
}

func (in *input) justPressed(window *glfw.Window, key glfw.Key) bool {
	down := window.GetKey(key) == glfw.Press
	jp := down && !in.prevKeys[key]
	in.prevKeys[key] = down
	return jp
}

func initWindow() (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(WindowWidth, WindowHeight, windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

// RunWindow opens the player window and runs its event loop on the calling
// goroutine until the window closes or a quit key is pressed.
func RunWindow(ctrl *Controller, logger *slog.Logger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window, err := initWindow()
	if err != nil {
		return err
	}
	defer glfw.Terminate()
	defer window.Destroy()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	gl.Disable(gl.DEPTH_TEST)

	if ctrl.Copy == nil {
		if err := clipboard.Init(); err != nil {
			logger.Warn("clipboard unavailable", slog.Any("error", err))
		} else {
			ctrl.Copy = func(text string) error {
				clipboard.Write(clipboard.FmtText, []byte(text))
				return nil
			}
		}
	}

	in := &input{prevKeys: make(map[glfw.Key]bool)}
	title := ""
	for !window.ShouldClose() {
		glfw.PollEvents()

		for key, action := range windowKeys {
			if !in.justPressed(window, key) {
				continue
			}
			msg, quit := ctrl.Dispatch(action)
			if msg != "" {
				logger.Info(msg)
			}
			if quit {
				window.SetShouldClose(true)
			}
		}

		st := ctrl.Session.Status()
		if t := windowTitle + " - " + StatusLine(st); t != title {
			window.SetTitle(t)
			title = t
		}

		fbW, fbH := window.GetFramebufferSize()
		if fbW <= 0 || fbH <= 0 {
			continue
		}
		drawFrame(st, ctrl.Session.Progress(), fbW, fbH)
		window.SwapBuffers()
	}
	ctrl.Session.Stop()
	return nil
}

// drawFrame fills each layout box with a scissored clear, which needs no
// shader program in a core profile context.
func drawFrame(st session.Status, progress float64, fbW, fbH int) {
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.Disable(gl.SCISSOR_TEST)
	r, g, b := Background(st)
	gl.ClearColor(r, g, b, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.Enable(gl.SCISSOR_TEST)
	for _, rc := range Layout(st, progress, fbW, fbH) {
		if rc.W <= 0 || rc.H <= 0 {
			continue
		}
		gl.Scissor(int32(rc.X), int32(rc.Y), int32(rc.W), int32(rc.H))
		gl.ClearColor(rc.R, rc.G, rc.B, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}
	gl.Disable(gl.SCISSOR_TEST)
}
