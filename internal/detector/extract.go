package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/yujeong-lee-1996/temp-kpop/internal/capture"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// Output names written by Extract.
const (
	FramesDir     = "frames"
	KeypointsFile = "keypoints.json"
)

// minVisibility is the lowest landmark visibility drawn by Annotate.
const minVisibility = 0.5

var (
	jointColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	boneColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Extraction describes the output of Extract.
type Extraction struct {
	KeypointsPath string
	FramesDir     string
	Frames        int
	Detected      int
	FPS           int
}

// Extract runs det on every frame of src. It writes each annotated frame to
// outDir/frames/frame_%06d.jpg and the keypoint records to
// outDir/keypoints.json. Frames without a detected person are recorded with
// every joint missing.
func Extract(ctx context.Context, src capture.Source, det Detector, outDir string) (*Extraction, error) {
	framesDir := filepath.Join(outDir, FramesDir)
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	if !src.IsOpen() {
		if err := src.Open(); err != nil {
			return nil, err
		}
		defer src.Close()
	}

	seq := pose.Sequence{FPS: src.FPS()}
	cat := pose.DefaultCatalog()
	detected := 0

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mat, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", i, err)
		}

		lm, err := det.Detect(mat)
		if err != nil {
			mat.Close()
			return nil, fmt.Errorf("detect frame %d: %w", i, err)
		}
		if lm != nil {
			detected++
			Annotate(mat, lm, cat)
		}
		seq.Frames = append(seq.Frames, lm.Frame(i, mat.Cols(), mat.Rows()))

		ok := gocv.IMWrite(filepath.Join(framesDir, capture.FrameName(i)), *mat)
		mat.Close()
		if !ok {
			return nil, fmt.Errorf("write frame %d", i)
		}
	}

	data, err := pose.MarshalRecords(seq)
	if err != nil {
		return nil, fmt.Errorf("encode keypoints: %w", err)
	}
	keypointsPath := filepath.Join(outDir, KeypointsFile)
	if err := os.WriteFile(keypointsPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write keypoints: %w", err)
	}

	log.Printf("Extracted %d frames (%d with a person) to %s", seq.Len(), detected, outDir)

	return &Extraction{
		KeypointsPath: keypointsPath,
		FramesDir:     framesDir,
		Frames:        seq.Len(),
		Detected:      detected,
		FPS:           seq.FPS,
	}, nil
}

// Annotate draws the limb segments of every catalog angle and a dot on each
// visible joint.
func Annotate(mat *gocv.Mat, lm *Landmarks, cat *pose.Catalog) {
	if lm == nil {
		return
	}
	w, h := float64(mat.Cols()), float64(mat.Rows())
	at := func(j pose.Joint) (image.Point, bool) {
		p := lm.Points[j]
		return image.Pt(int(p.X*w), int(p.Y*h)), p.Visibility >= minVisibility
	}

	for _, tr := range cat.Triplets() {
		a, okA := at(tr.A)
		b, okB := at(tr.B)
		c, okC := at(tr.C)
		if okA && okB {
			gocv.Line(mat, a, b, boneColor, 2)
		}
		if okB && okC {
			gocv.Line(mat, b, c, boneColor, 2)
		}
	}

	for j := range lm.Points {
		if p, ok := at(pose.Joint(j)); ok {
			gocv.Circle(mat, p, 3, jointColor, -1)
		}
	}
}
