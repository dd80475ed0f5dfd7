package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"retrosynth/internal/session"
	"retrosynth/internal/synth"
)

type playResponse struct {
	Playing    bool                   `json:"playing"`
	DurationMS int64                  `json:"duration_ms"`
	Genre      synth.Genre            `json:"genre"`
	Track      *session.PlaylistTrack `json:"track,omitempty"`
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, session.Genres())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleSelectGenre(w http.ResponseWriter, r *http.Request) {
	g, err := synth.ParseGenre(chi.URLParam(r, "genre"))
	if err == nil {
		err = s.session.SelectGenre(g)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	d, err := s.session.Play()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, playResponse{
		Playing:    s.session.IsPlaying(),
		DurationMS: d.Milliseconds(),
		Genre:      s.session.Genre(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	s.writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	next, d, err := s.session.Skip()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, playResponse{
		Playing:    s.session.IsPlaying(),
		DurationMS: d.Milliseconds(),
		Genre:      next.Genre,
		Track:      &next,
	})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"volume\": 0-100}"})
		return
	}
	if err := s.session.SetVolume(*req.Volume); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Playlist())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusCreated, s.session.GenerateTrack())
}

// writeError maps engine errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case synth.IsInvalidArgument(err):
		status = http.StatusBadRequest
	case errors.Is(err, synth.ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, synth.ErrClosed):
		status = http.StatusGone
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", slog.Any("error", err))
	}
}
