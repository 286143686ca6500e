package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"github.com/soundprint/soundprint/internal/audio"
	"github.com/soundprint/soundprint/pkg/logger"
	"github.com/soundprint/soundprint/pkg/soundprint"
	"github.com/soundprint/soundprint/pkg/utils"
)

var (
	dbPath         string
	tempDir        string
	rate           int
	requestTimeout time.Duration
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SOUNDPRINT_DB_PATH", "soundprint.afp"), "path to the recognizer's database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SOUNDPRINT_TEMP_DIR", "/tmp"), "directory for temporary audio conversion files")
	flag.IntVar(&rate, "rate", 11025, "target sample rate for fingerprinting")
	flag.DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "deadline for the fingerprinting pipeline itself, excluding audio conversion/download")
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	// init read the flag defaults before .env was loaded; pick up its values.
	dbPath = getEnvOrDefault("SOUNDPRINT_DB_PATH", dbPath)
	tempDir = getEnvOrDefault("SOUNDPRINT_TEMP_DIR", tempDir)
	log := logger.GetLogger()

	printBanner()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	flag.CommandLine.Parse(os.Args[2:])
	log.Infof("executing command: %s", command)

	switch command {
	case "learn":
		handleLearn(log)
	case "identify":
		handleIdentify(log)
	case "list":
		handleList(log)
	case "delete":
		handleDelete(log)
	default:
		fmt.Printf("unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
  ___                      _ ____       _       _
 / __| ___ _  _ _ _  __ __| (__ / _| _ (_)_ _ __| |_
 \__ \/ _ \ || | ' \/ _/ _` + "`" + ` |/ / |  _/ | ' \(_-<  _|
 |___/\___/\_,_|_||_\__\__,_/___|_| |_|_||_/__/\__|
            acoustic fingerprint recognizer
`)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  soundprint [global flags] learn <audio_file> --name <name>")
	fmt.Println("  soundprint [global flags] learn --youtube-url <url> [--name <name>]")
	fmt.Println("  soundprint [global flags] identify <audio_file>")
	fmt.Println("  soundprint [global flags] list")
	fmt.Println("  soundprint [global flags] delete <track_id>")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  -db <path>              database file (env: SOUNDPRINT_DB_PATH)")
	fmt.Println("  -temp <dir>             scratch directory for conversions (env: SOUNDPRINT_TEMP_DIR)")
	fmt.Println("  -rate <hz>              target fingerprinting rate")
	fmt.Println("  -request-timeout <dur>  deadline for the fingerprinting pipeline itself")
}

func newEngine() (*soundprint.Engine, error) {
	e, err := soundprint.New(soundprint.WithTargetRate(rate), soundprint.WithRequestTimeout(requestTimeout))
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(dbPath); statErr == nil {
		if err := e.Open(dbPath); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ingest converts an arbitrary input file to a target-rate mono WAV and
// decodes it, the way the service layer always has: ffmpeg first, then a
// dedicated WAV reader, never a format guess.
func ingest(ctx context.Context, path string) ([]float64, int, error) {
	converted, err := audio.ConvertToMonoWAV(ctx, path, tempDir, audio.ConvertConfig{TargetRate: rate})
	if err != nil {
		return nil, 0, fmt.Errorf("converting %s: %w", path, err)
	}
	return audio.ReadWAV(converted)
}

func handleLearn(log *logger.Logger) {
	args := os.Args[2:]
	var audioPath string
	var rest []string
	for i, a := range args {
		if len(a) > 0 && a[0] != '-' && audioPath == "" {
			audioPath = a
			continue
		}
		rest = args[i:]
		break
	}

	learnCmd := flag.NewFlagSet("learn", flag.ExitOnError)
	name := learnCmd.String("name", "", "track name (required unless using --youtube-url)")
	youtubeURL := learnCmd.String("youtube-url", "", "YouTube URL to download and learn instead of a local file")
	learnCmd.Parse(rest)

	// ingestCtx bounds audio conversion and YouTube download only; the
	// fingerprinting call below gets its own deadline from -request-timeout.
	ingestCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if audioPath != "" && utils.IsYouTubeURL(audioPath) && *youtubeURL == "" {
		*youtubeURL = audioPath
		audioPath = ""
	}

	if *youtubeURL != "" {
		if audioPath != "" {
			fatal(log, "cannot specify both an audio file and --youtube-url")
		}
		fmt.Println("downloading audio from YouTube...")
		downloaded, meta, err := audio.DownloadYouTubeAudio(ingestCtx, *youtubeURL, tempDir)
		if err != nil {
			fatalErr(log, "downloading YouTube audio", err)
		}
		audioPath = downloaded
		if *name == "" {
			*name = fmt.Sprintf("%s - %s", meta.Title, meta.Artist)
		}
	} else if audioPath == "" {
		fatal(log, "an audio file path or --youtube-url is required")
	}
	if *name == "" {
		fatal(log, "--name is required for a local file")
	}

	e, err := newEngine()
	if err != nil {
		fatalErr(log, "initializing engine", err)
	}
	defer e.Close()

	fmt.Println("processing audio...")
	samples, sr, err := ingest(ingestCtx, audioPath)
	if err != nil {
		fatalErr(log, "reading audio", err)
	}

	id, err := e.Learn(context.Background(), *name, samples, sr)
	if err != nil {
		fatalErr(log, "learning track", err)
	}
	if err := e.Save(dbPath); err != nil {
		fatalErr(log, "saving database", err)
	}

	fmt.Printf("learned %q as track %d\n", *name, id)
}

func handleIdentify(log *logger.Logger) {
	if len(os.Args) < 3 {
		fmt.Println("usage: soundprint identify <audio_file>")
		os.Exit(1)
	}
	audioPath := os.Args[2]

	e, err := newEngine()
	if err != nil {
		fatalErr(log, "initializing engine", err)
	}
	defer e.Close()

	// ingestCtx bounds audio conversion only; the fingerprinting call
	// below gets its own deadline from -request-timeout.
	ingestCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	samples, sr, err := ingest(ingestCtx, audioPath)
	if err != nil {
		fatalErr(log, "reading audio", err)
	}

	result, err := e.Identify(context.Background(), samples, sr)
	if err != nil {
		if soundprintErr, ok := err.(*soundprint.Error); ok && (soundprintErr.Kind == soundprint.KindNoMatch || soundprintErr.Kind == soundprint.KindAmbiguous) {
			fmt.Printf("no confident match: %v\n", err)
			return
		}
		fatalErr(log, "identifying audio", err)
	}

	fmt.Printf("matched track %d (score %d, offset %d frames)\n", result.TrackID, result.Score, result.OffsetFrames)
}

func handleList(log *logger.Logger) {
	e, err := newEngine()
	if err != nil {
		fatalErr(log, "initializing engine", err)
	}
	defer e.Close()

	tracks, err := e.ListTracks()
	if err != nil {
		fatalErr(log, "listing tracks", err)
	}
	if len(tracks) == 0 {
		fmt.Println("no tracks in the database")
		return
	}
	for _, t := range tracks {
		fmt.Printf("%d. %s (%d fingerprints, learned %s)\n", t.ID, t.Name, t.FingerprintCount, t.CreatedAt.Format(time.RFC3339))
	}
}

func handleDelete(log *logger.Logger) {
	if len(os.Args) < 3 {
		fmt.Println("usage: soundprint delete <track_id>")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		fatalErr(log, "parsing track id", err)
	}

	e, err := newEngine()
	if err != nil {
		fatalErr(log, "initializing engine", err)
	}
	defer e.Close()

	if err := e.DeleteTrack(soundprint.TrackID(id)); err != nil {
		fatalErr(log, "deleting track", err)
	}
	if err := e.Save(dbPath); err != nil {
		fatalErr(log, "saving database", err)
	}
	fmt.Printf("deleted track %d\n", id)
}

// fatalErr wraps err with a stack trace at this boundary before logging and
// exiting, so a postmortem log line carries more than a flat message.
func fatalErr(log *logger.Logger, action string, err error) {
	wrapped := xerrors.New(err)
	log.Fatalf("%s: %v", action, wrapped)
}

func fatal(log *logger.Logger, msg string) {
	log.Fatal(msg)
}
