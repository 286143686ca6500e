package main

import (
	"fmt"
	"time"
)

// ErrorResponse is the JSON body for any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// TrackDTO is a single catalog entry as sent over the wire.
type TrackDTO struct {
	ID               uint32    `json:"id"`
	Name             string    `json:"name"`
	FingerprintCount uint32    `json:"fingerprint_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListTracksResponse is the body of GET /api/tracks.
type ListTracksResponse struct {
	Tracks []TrackDTO `json:"tracks"`
	Count  int        `json:"count"`
}

// LearnResponse is the body of a successful POST /api/tracks.
type LearnResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
}

// LearnYouTubeRequest is the body of POST /api/tracks/youtube.
type LearnYouTubeRequest struct {
	YoutubeURL string `json:"youtube_url"`
	Name       string `json:"name"`
}

func (r *LearnYouTubeRequest) Validate() error {
	if r.YoutubeURL == "" {
		return errRequired("youtube_url")
	}
	return nil
}

// IdentifyResponse is the body of a successful POST /api/identify.
type IdentifyResponse struct {
	TrackID      uint32 `json:"track_id"`
	Score        int    `json:"score"`
	OffsetFrames int    `json:"offset_frames"`
}

// DeleteTrackResponse is the body of a successful DELETE /api/tracks/{id}.
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
}

// MetricsResponse is the body of GET /api/health/metrics.
type MetricsResponse struct {
	Status     string `json:"status"`
	DBPath     string `json:"db_path"`
	TrackCount int    `json:"track_count"`
	TargetRate int    `json:"target_rate"`
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}
