//go:build headless

package host

import "log/slog"

// RunWindow is unavailable in headless builds.
func RunWindow(ctrl *Controller, logger *slog.Logger) error {
	return ErrNoWindow
}
