package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"retrosynth/internal/host"
	"retrosynth/internal/server"
	"retrosynth/internal/session"
	"retrosynth/internal/synth"
)

var version = "0.1.0"

var (
	flagVolume  int
	flagSeed    uint32
	flagBackend string
	flagVerbose bool
	flagGenre   string
	flagCount   int
	flagAddr    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "retrosynth",
	Short: "Procedural retro game music synthesizer",
	Long: `retrosynth generates short chiptune, arcade and RPG style tracks
from fixed genre presets and plays them on the default audio output.

Set RETROSYNTH_SEED (or --seed) for reproducible melodies.`,
	Version:      version,
	SilenceUsage: true,
}

var playCmd = &cobra.Command{
	Use:   "play [genre]",
	Short: "Play generated tracks and exit",
	Long: `Play one or more generated tracks of a genre, then exit.

Examples:
  retrosynth play arcade
  retrosynth play --genre rpg --count 3 --volume 40`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive player in the terminal",
	RunE:  runTUI,
}

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Interactive player in a window",
	RunE:  runWindow,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP remote control",
	Long: `Serve a JSON API that drives the player.

Example:
  retrosynth serve --addr :8080
  curl -X PUT localhost:8080/api/genre/arcade && curl -X POST localhost:8080/api/play`,
	RunE: runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagVolume, "volume", synth.DefaultVolume, "master volume percent (0-100)")
	pf.Uint32Var(&flagSeed, "seed", 0, "melody seed (default: $"+synth.SeedEnv+" or the clock)")
	pf.StringVar(&flagBackend, "backend", "default", "audio backend: default or none")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	playCmd.Flags().StringVarP(&flagGenre, "genre", "g", "chiptune", "chiptune, arcade or rpg")
	playCmd.Flags().IntVarP(&flagCount, "count", "n", 1, "number of tracks to play back to back")
	tuiCmd.Flags().StringVarP(&flagGenre, "genre", "g", "chiptune", "initial genre")
	windowCmd.Flags().StringVarP(&flagGenre, "genre", "g", "chiptune", "initial genre")
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")

	rootCmd.AddCommand(playCmd, tuiCmd, windowCmd, serveCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newPlayer builds the synthesizer and a session around it from the flags.
func newPlayer(cmd *cobra.Command, logger *slog.Logger) (*synth.Synthesizer, *session.Session, error) {
	if flagVolume < synth.MinVolume || flagVolume > synth.MaxVolume {
		return nil, nil, fmt.Errorf("--volume %d: %w", flagVolume, synth.ErrInvalidVolume)
	}
	genre, err := synth.ParseGenre(flagGenre)
	if err != nil {
		return nil, nil, err
	}
	backend, factory, err := synth.LookupBackend(flagBackend)
	if err != nil {
		return nil, nil, err
	}

	seed := synth.DefaultSeed()
	if cmd.Flags().Changed("seed") {
		seed = flagSeed
	}
	logger.Debug("player config",
		slog.String("backend", backend),
		slog.Uint64("seed", uint64(seed)),
		slog.Int("volume", flagVolume))

	s := synth.NewSynthesizer(
		synth.WithDevice(backend, factory),
		synth.WithLogger(logger),
		synth.WithRandom(synth.NewSeededRNG(seed)),
		synth.WithVolume(flagVolume),
	)
	sess := session.New(s,
		session.WithLogger(logger),
		session.WithRandom(synth.NewSeededRNG(seed^0x9e3779b9)),
		session.WithVolume(flagVolume),
	)
	if err := sess.SelectGenre(genre); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, sess, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		flagGenre = args[0]
	}
	logger := newLogger()
	s, sess, err := newPlayer(cmd, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	for i := 0; i < flagCount; i++ {
		d, err := sess.Play()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", host.StatusLine(sess.Status()), d.Round(time.Millisecond))
		if i == flagCount-1 {
			break
		}
		select {
		case <-ctx.Done():
			sess.Stop()
			return nil
		case <-time.After(d):
		}
	}
	// The last notes of a track ring past its nominal duration.
	if err := s.Drain(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	sess.Stop()
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	s, sess, err := newPlayer(cmd, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()
	ctrl := &host.Controller{Session: sess, Logger: logger}
	return host.NewTerminalHost(ctrl, os.Stdin, cmd.OutOrStdout(), logger).Run(ctx)
}

func runWindow(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	s, sess, err := newPlayer(cmd, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl := &host.Controller{Session: sess, Logger: logger}
	if err := host.RunWindow(ctrl, logger); err != nil {
		if errors.Is(err, host.ErrNoWindow) {
			return fmt.Errorf("%w; try the tui command", err)
		}
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	s, sess, err := newPlayer(cmd, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := s.Initialize(ctx); err != nil {
		logger.Warn("serving without sound", slog.Any("error", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n  retrosynth remote control on %s\n\n", flagAddr)
	return server.New(server.Config{Addr: flagAddr}, sess, logger).Run(ctx)
}
