package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soundprint/soundprint/internal/audio"
	"github.com/soundprint/soundprint/pkg/logger"
	"github.com/soundprint/soundprint/pkg/soundprint"
)

// Server encapsulates the HTTP surface and its dependencies. Every
// handler goes through a single *soundprint.Engine, which already
// enforces the single-writer/multi-reader contract internally.
type Server struct {
	engine *soundprint.Engine
	config *ServerConfig
	log    *logger.Logger
}

type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	TargetRate     int
	AllowedOrigins []string
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message, Code: status})
}

// respondEngineErr maps a *soundprint.Error's Kind to the HTTP status a
// REST client expects it to mean; anything else is a 500.
func (s *Server) respondEngineErr(w http.ResponseWriter, err error) {
	var sErr *soundprint.Error
	if errors.As(err, &sErr) {
		switch sErr.Kind {
		case soundprint.KindInvalidInput, soundprint.KindTooShort:
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		case soundprint.KindNoMatch, soundprint.KindAmbiguous:
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		case soundprint.KindIndexCorrupt, soundprint.KindIndexIOError:
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "soundprint API",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"tracks":        "GET /api/tracks",
			"learnFile":     "POST /api/tracks",
			"learnYoutube":  "POST /api/tracks/youtube",
			"deleteTrack":   "DELETE /api/tracks/{id}",
			"identify":      "POST /api/identify",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.engine.ListTracks()
	if err != nil {
		s.log.Errorf("[%s] metrics: %v", requestID(r), err)
		s.respondEngineErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:     "healthy",
		DBPath:     s.config.DBPath,
		TrackCount: len(tracks),
		TargetRate: s.config.TargetRate,
	})
}

// handleTracks dispatches GET (list) and POST (learn from an uploaded
// file) on /api/tracks.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTracks(w, r)
	case http.MethodPost:
		s.handleLearnFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.engine.ListTracks()
	if err != nil {
		s.respondEngineErr(w, err)
		return
	}
	dtos := make([]TrackDTO, len(tracks))
	for i, t := range tracks {
		dtos[i] = TrackDTO{ID: uint32(t.ID), Name: t.Name, FingerprintCount: t.FingerprintCount, CreatedAt: t.CreatedAt}
	}
	s.respondJSON(w, http.StatusOK, ListTracksResponse{Tracks: dtos, Count: len(dtos)})
}

func (s *Server) handleLearnFile(w http.ResponseWriter, r *http.Request) {
	// ingestCtx bounds the audio conversion in learnFromFile only; the
	// fingerprinting call there gets its own deadline from the server's
	// -request-timeout.
	ingestCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempPath := filepath.Join(s.config.TempDir, fmt.Sprintf("upload_%d_%s", time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempPath)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.Remove(tempPath)
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	out.Close()

	id, err := s.learnFromFile(ingestCtx, tempPath, name)
	if err != nil {
		s.log.Errorf("[%s] learn: %v", requestID(r), err)
		s.respondEngineErr(w, err)
		return
	}

	if err := s.engine.Save(s.config.DBPath); err != nil {
		s.log.Errorf("[%s] saving database: %v", requestID(r), err)
	}
	s.respondJSON(w, http.StatusCreated, LearnResponse{Message: "track learned", ID: uint32(id), Name: name})
}

func (s *Server) handleLearnYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	// ingestCtx bounds the YouTube download and conversion only; the
	// fingerprinting call in learnFromFile gets its own deadline from the
	// server's -request-timeout.
	ingestCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req LearnYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	downloaded, meta, err := audio.DownloadYouTubeAudio(ingestCtx, req.YoutubeURL, s.config.TempDir)
	if err != nil {
		s.log.Errorf("[%s] youtube download: %v", requestID(r), err)
		s.respondError(w, http.StatusBadGateway, "failed to download audio")
		return
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s - %s", meta.Title, meta.Artist)
	}

	id, err := s.learnFromFile(ingestCtx, downloaded, name)
	if err != nil {
		s.log.Errorf("[%s] learn: %v", requestID(r), err)
		s.respondEngineErr(w, err)
		return
	}

	if err := s.engine.Save(s.config.DBPath); err != nil {
		s.log.Errorf("[%s] saving database: %v", requestID(r), err)
	}
	s.respondJSON(w, http.StatusCreated, LearnResponse{Message: "track learned", ID: uint32(id), Name: name})
}

// handleTrack dispatches DELETE on /api/tracks/{id}.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.engine.DeleteTrack(soundprint.TrackID(id)); err != nil {
			s.respondEngineErr(w, err)
			return
		}
		if err := s.engine.Save(s.config.DBPath); err != nil {
			s.log.Errorf("[%s] saving database: %v", requestID(r), err)
		}
		s.respondJSON(w, http.StatusOK, DeleteTrackResponse{Message: "track deleted", ID: uint32(id)})
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	// ingestCtx bounds converting the upload only; the fingerprinting call
	// below gets its own deadline from the server's -request-timeout.
	ingestCtx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempPath := filepath.Join(s.config.TempDir, fmt.Sprintf("query_%d_%s", time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempPath)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.Remove(tempPath)
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	out.Close()

	converted, err := audio.ConvertToMonoWAV(ingestCtx, tempPath, s.config.TempDir, audio.ConvertConfig{TargetRate: s.config.TargetRate})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to convert audio")
		return
	}
	samples, sr, err := audio.ReadWAV(converted)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to decode audio")
		return
	}

	result, err := s.engine.Identify(context.Background(), samples, sr)
	if err != nil {
		s.respondEngineErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, IdentifyResponse{
		TrackID:      uint32(result.TrackID),
		Score:        result.Score,
		OffsetFrames: result.OffsetFrames,
	})
}

// learnFromFile converts and decodes an already-downloaded/uploaded audio
// file and hands its samples to the engine.
func (s *Server) learnFromFile(ctx context.Context, path, name string) (soundprint.TrackID, error) {
	converted, err := audio.ConvertToMonoWAV(ctx, path, s.config.TempDir, audio.ConvertConfig{TargetRate: s.config.TargetRate})
	if err != nil {
		return 0, fmt.Errorf("converting audio: %w", err)
	}
	samples, sr, err := audio.ReadWAV(converted)
	if err != nil {
		return 0, fmt.Errorf("decoding audio: %w", err)
	}
	return s.engine.Learn(context.Background(), name, samples, sr)
}
