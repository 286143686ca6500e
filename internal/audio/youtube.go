package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/soundprint/soundprint/pkg/utils"
)

// ensureYTDLP installs the yt-dlp binary on first use. go-ytdlp caches the
// download under the user's cache directory, so this is cheap on every
// call after the first.
var ensureYTDLP = sync.OnceValue(func() error {
	_, err := ytdlp.Install(context.Background(), nil)
	return err
})

// VideoMetadata is the subset of yt-dlp's JSON metadata the recognizer
// cares about when naming a track pulled from YouTube.
type VideoMetadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// pickArtist falls back through the metadata fields yt-dlp is most likely
// to have populated, in order of how trustworthy they are as an "artist".
func pickArtist(meta VideoMetadata) string {
	if strings.TrimSpace(meta.Artist) != "" {
		return meta.Artist
	}
	if strings.TrimSpace(meta.Channel) != "" {
		return meta.Channel
	}
	if strings.TrimSpace(meta.Uploader) != "" {
		return meta.Uploader
	}
	return "Unknown Artist"
}

// audioExtensions are the containers yt-dlp's "best audio" format selector
// commonly produces, checked in order after a download.
var audioExtensions = []string{".m4a", ".webm", ".opus", ".mp3", ".aac", ".ogg"}

// DownloadYouTubeAudio fetches metadata and the best available audio
// stream for a YouTube URL, saving it under outputDir. It returns the path
// to the downloaded (not yet converted) audio file; callers still need to
// run it through ConvertToMonoWAV before handing it to the recognizer.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL, outputDir string) (path string, meta *VideoMetadata, err error) {
	if err := ensureYTDLP(); err != nil {
		return "", nil, fmt.Errorf("audio: installing yt-dlp: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("audio: creating output directory: %w", err)
	}

	metaResult, err := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		DumpSingleJSON().
		SkipDownload().
		Run(ctx, youtubeURL)
	if err != nil {
		return "", nil, fmt.Errorf("audio: fetching video metadata: %w", err)
	}

	var vm VideoMetadata
	if err := json.Unmarshal([]byte(metaResult.Stdout), &vm); err != nil {
		return "", nil, fmt.Errorf("audio: parsing yt-dlp metadata: %w", err)
	}
	if strings.TrimSpace(vm.ID) == "" {
		return "", nil, fmt.Errorf("audio: yt-dlp metadata is missing a video id")
	}
	if vm.Artist == "" {
		vm.Artist = pickArtist(vm)
	}

	outputTemplate := filepath.Join(outputDir, vm.ID+".%(ext)s")
	_, err = ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Format("ba").
		Output(outputTemplate).
		Run(ctx, youtubeURL)
	if err != nil {
		return "", nil, fmt.Errorf("audio: downloading audio stream: %w", err)
	}

	for _, ext := range audioExtensions {
		candidate := filepath.Join(outputDir, vm.ID+ext)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, &vm, nil
		}
	}
	return "", nil, fmt.Errorf("audio: downloaded file for video %s not found among %v", vm.ID, audioExtensions)
}
