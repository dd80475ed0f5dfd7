package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"retrosynth/internal/synth"
)

// Engine is the part of the synthesizer a session drives.
type Engine interface {
	Play(g synth.Genre) (time.Duration, error)
	Stop()
	SetVolume(percent int) error
	IsInitialized() bool
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

// PlaylistTrack is one playlist entry. Title and duration are labels owned by
// the caller; nothing here flows back into the synthesizer.
type PlaylistTrack struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	Genre    synth.Genre `json:"genre"`
	Duration string      `json:"duration"`
}

// Status is a snapshot of the session for hosts and the HTTP API.
type Status struct {
	Genre      synth.Genre    `json:"genre"`
	GenreName  string         `json:"genre_name"`
	Playing    bool           `json:"playing"`
	Volume     int            `json:"volume"`
	AudioReady bool           `json:"audio_ready"`
	Current    *PlaylistTrack `json:"current,omitempty"`
}

// Session holds the player state of one UI: selected genre, play state with
// an auto-stop timer, volume and playlist.
type Session struct {
	mu        sync.Mutex
	engine    Engine
	logger    *slog.Logger
	rand      synth.RandomSource
	afterFunc AfterFunc
	now       func() time.Time

	genre    synth.Genre
	playing  bool
	volume   int
	playlist []PlaylistTrack
	cursor   int
	lastID   int64
	timer    Timer
	playGen  uint64
	started  time.Time
	length   time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRandom sets the source used for generated titles and labels.
func WithRandom(r synth.RandomSource) Option {
	return func(s *Session) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the auto-stop timer.
func WithAfterFunc(f AfterFunc) Option {
	return func(s *Session) {
		if f != nil {
			s.afterFunc = f
		}
	}
}

// WithVolume sets the initial volume percent, clamped to 0..100.
func WithVolume(percent int) Option {
	return func(s *Session) {
		s.volume = min(max(percent, synth.MinVolume), synth.MaxVolume)
	}
}

// WithClock replaces time.Now for track IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session with the default playlist. The engine volume is set
// to the session's initial volume.
func New(engine Engine, opts ...Option) *Session {
	s := &Session{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rand:   synth.NewSeededRNG(synth.DefaultSeed()),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		genre:  synth.Chiptune,
		volume: synth.DefaultVolume,
		playlist: []PlaylistTrack{
			{ID: 1, Title: "Pixel Adventure", Genre: synth.Chiptune, Duration: "2:45"},
			{ID: 2, Title: "Boss Battle Theme", Genre: synth.Arcade, Duration: "3:20"},
			{ID: 3, Title: "Village Melody", Genre: synth.Rpg, Duration: "4:15"},
		},
		lastID: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := engine.SetVolume(s.volume); err != nil {
		s.logger.Warn("set initial volume", slog.Any("error", err))
	}
	return s
}

// SelectGenre changes the genre used by the next Play.
func (s *Session) SelectGenre(g synth.Genre) error {
	if !g.Valid() {
		return fmt.Errorf("select genre: %w", synth.ErrInvalidGenre)
	}
	s.mu.Lock()
	s.genre = g
	s.mu.Unlock()
	return nil
}

// Genre returns the selected genre.
func (s *Session) Genre() synth.Genre {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genre
}

// Play generates and plays a track of the selected genre. The playing flag
// resets itself when the returned duration elapses.
func (s *Session) Play() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked()
}

func (s *Session) playLocked() (time.Duration, error) {
	d, err := s.engine.Play(s.genre)
	if err != nil {
		if errors.Is(err, synth.ErrDeviceUnavailable) {
			s.logger.Warn("audio unavailable", slog.Any("error", err))
		}
		return 0, err
	}
	s.cancelTimerLocked()
	if d <= 0 {
		// No device: nothing is sounding.
		s.playing = false
		return 0, nil
	}
	s.playing = true
	s.started = s.now()
	s.length = d
	s.playGen++
	gen := s.playGen
	s.timer = s.afterFunc(d, func() { s.autoStop(gen) })
	s.logger.Debug("playing", slog.String("genre", s.genre.String()), slog.Duration("duration", d))
	return d, nil
}

// autoStop clears the playing flag unless a newer Play or Stop superseded gen.
func (s *Session) autoStop(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.playGen {
		return
	}
	s.playing = false
	s.timer = nil
}

// Progress returns the played fraction of the current track, 0 when idle.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.length <= 0 {
		return 0
	}
	p := float64(s.now().Sub(s.started)) / float64(s.length)
	return min(max(p, 0), 1)
}

// Stop cuts playback and cancels the auto-stop timer.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.engine.Stop()
	s.cancelTimerLocked()
	s.playGen++
	s.playing = false
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// TogglePlay stops when playing and plays otherwise.
func (s *Session) TogglePlay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.stopLocked()
		return false, nil
	}
	_, err := s.playLocked()
	return s.playing, err
}

// Skip stops the current track and plays the next playlist entry's genre.
func (s *Session) Skip() (PlaylistTrack, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	if len(s.playlist) == 0 {
		return PlaylistTrack{}, 0, nil
	}
	s.cursor = (s.cursor + 1) % len(s.playlist)
	next := s.playlist[s.cursor]
	s.genre = next.Genre
	d, err := s.playLocked()
	return next, d, err
}

// IsPlaying reports whether a track is audible from the caller's view.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetVolume sets the volume percent on the engine.
func (s *Session) SetVolume(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.SetVolume(percent); err != nil {
		return err
	}
	s.volume = percent
	return nil
}

// AdjustVolume changes the volume by delta, clamped to 0..100.
func (s *Session) AdjustVolume(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := min(max(s.volume+delta, synth.MinVolume), synth.MaxVolume)
	if err := s.engine.SetVolume(v); err == nil {
		s.volume = v
	}
	return s.volume
}

// Volume returns the volume percent.
func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// GenerateTrack appends a track with a random title and duration label for
// the selected genre.
func (s *Session) GenerateTrack() PlaylistTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	t := PlaylistTrack{
		ID:       id,
		Title:    randomTitle(s.genre, s.rand),
		Genre:    s.genre,
		Duration: randomDurationLabel(s.rand),
	}
	s.playlist = append(s.playlist, t)
	return t
}

// Playlist returns a copy of the playlist.
func (s *Session) Playlist() []PlaylistTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlaylistTrack, len(s.playlist))
	copy(out, s.playlist)
	return out
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Genre:      s.genre,
		GenreName:  InfoFor(s.genre).Name,
		Playing:    s.playing,
		Volume:     s.volume,
		AudioReady: s.engine.IsInitialized(),
	}
	if s.cursor < len(s.playlist) {
		cur := s.playlist[s.cursor]
		st.Current = &cur
	}
	return st
}

// NowPlayingLabel is the "title - genre (m:ss)" line hosts display and copy.
func (s *Session) NowPlayingLabel() string {
	st := s.Status()
	if st.Current == nil {
		return st.GenreName
	}
	return fmt.Sprintf("%s - %s (%s)", st.Current.Title, InfoFor(st.Current.Genre).Name, st.Current.Duration)
}
