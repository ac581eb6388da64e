package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/yujeong-lee-1996/temp-kpop/internal/app"
	"github.com/yujeong-lee-1996/temp-kpop/internal/capture"
	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/config"
	"github.com/yujeong-lee-1996/temp-kpop/internal/detector"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/render"
	"github.com/yujeong-lee-1996/temp-kpop/internal/report"
	"github.com/yujeong-lee-1996/temp-kpop/internal/server"
	"github.com/yujeong-lee-1996/temp-kpop/internal/store"
)

const usage = `posecoach - pose sequence similarity and feedback

Usage:
  posecoach compare -ref ref.json -user user.json [-out dir] [-config tuning.json] [-chart] [-html]
  posecoach serve   [-addr :8080] [-data dir] [-web dir] [-config tuning.json] [-hooks dir]
  posecoach extract -video dance.mp4 -out dir
  posecoach render  -feedback feedback.json -ref-frames dir -user-frames dir -out out.mp4 [-fps 30]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "compare":
		err = runCompare(ctx, os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "extract":
		err = runExtract(ctx, os.Args[2:])
	case "render":
		err = runRender(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// loadTuning returns the tuning file at path, or the defaults when path is empty.
func loadTuning(path string) (*config.Tuning, error) {
	if path == "" {
		return config.DefaultTuning(), nil
	}
	return config.LoadTuning(path)
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	refPath := fs.String("ref", "", "reference keypoints JSON")
	userPath := fs.String("user", "", "user keypoints JSON")
	outDir := fs.String("out", ".", "directory for feedback.json and scores.json")
	configPath := fs.String("config", "", "tuning file (.json)")
	chart := fs.Bool("chart", false, "also write scores.png")
	html := fs.Bool("html", false, "also write scores.html")
	fs.Parse(args)

	if *refPath == "" || *userPath == "" {
		return fmt.Errorf("-ref and -user are required")
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	engine, err := compare.NewFromTuning(tuning)
	if err != nil {
		return err
	}

	res, err := engine.CompareFiles(ctx, *refPath, *userPath)
	if err != nil {
		return err
	}

	fbPath, scoresPath, err := compare.WriteArtifacts(*outDir, res)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", fbPath)
	fmt.Printf("Wrote %s\n", scoresPath)

	title := fmt.Sprintf("%s vs %s", baseName(*refPath), baseName(*userPath))
	if *chart && len(res.Scores.FrameScores) > 0 {
		path := filepath.Join(*outDir, app.ChartFile)
		if err := report.SaveScoreChart(path, title, res.Scores, res.FPS); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	if *html && len(res.Scores.FrameScores) > 0 {
		path := filepath.Join(*outDir, "scores.html")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = report.WriteScoreChartHTML(f, title, res.Scores, res.FPS, res.Report.Frames)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}

	fmt.Printf("Frames: %d  Mean score: %.3f  Flagged frames: %d\n",
		len(res.Frames), res.MeanScore(), len(res.Report.Frames))
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	dataDir := fs.String("data", "", "data directory (default ~/.posecoach)")
	webDir := fs.String("web", "", "static web directory")
	configPath := fs.String("config", "", "tuning file (.json)")
	hookDir := fs.String("hooks", "", "completion hook directory")
	fs.Parse(args)

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}

	if *dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		*dataDir = filepath.Join(homeDir, ".posecoach")
	}
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(*dataDir, "posecoach.db"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	a, err := app.New(app.Config{Store: st, Tuning: tuning, DataDir: *dataDir, HookDir: *hookDir})
	if err != nil {
		return err
	}
	defer a.Close()

	if *webDir == "" {
		*webDir = findWebDir()
	}
	if *webDir != "" {
		fmt.Printf("Serving static files from: %s\n", *webDir)
	}

	srv := server.New(server.Config{StaticDir: *webDir, App: a})

	fmt.Printf("Starting server on %s\n", *addr)
	return srv.ListenAndServe(*addr)
}

func runExtract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	video := fs.String("video", "", "input video")
	outDir := fs.String("out", "", "output directory")
	fs.Parse(args)

	if *video == "" || *outDir == "" {
		return fmt.Errorf("-video and -out are required")
	}

	a, err := app.New(app.Config{})
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.Detector().(*detector.MockDetector); ok {
		return fmt.Errorf("pose detector unavailable; install the MediaPipe service under ~/.posecoach")
	}

	ext, err := a.ExtractVideo(ctx, *video, *outDir)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d frames (%d with a pose) at %d fps\n", ext.Frames, ext.Detected, ext.FPS)
	fmt.Printf("Keypoints: %s\n", ext.KeypointsPath)
	fmt.Printf("Frames:    %s\n", ext.FramesDir)
	return nil
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	fbPath := fs.String("feedback", "", "feedback.json")
	refFrames := fs.String("ref-frames", "", "reference frames directory")
	userFrames := fs.String("user-frames", "", "user frames directory")
	out := fs.String("out", "feedback.mp4", "output video")
	fps := fs.Int("fps", capture.DefaultFPS, "output frame rate")
	fs.Parse(args)

	if *refFrames == "" || *userFrames == "" {
		return fmt.Errorf("-ref-frames and -user-frames are required")
	}

	var fb feedback.Map
	if *fbPath != "" {
		m, err := compare.ReadFeedback(*fbPath)
		if err != nil {
			return err
		}
		fb = m
	}

	opts := render.DefaultOptions()
	opts.FPS = *fps

	ref := capture.NewFrameDir(*refFrames, *fps)
	defer ref.Close()
	user := capture.NewFrameDir(*userFrames, *fps)
	defer user.Close()

	n, err := render.Video(ctx, ref, user, fb, *out, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d frames to %s\n", n, *out)
	return nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.posecoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".posecoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
