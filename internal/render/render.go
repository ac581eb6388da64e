// Package render draws feedback over side-by-side reference and user frames
// and writes the result as a video.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"

	"gocv.io/x/gocv"

	"github.com/yujeong-lee-1996/temp-kpop/internal/capture"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
)

// Text box layout in pixels.
const (
	paddingX    = 10
	paddingY    = 10
	lineSpacing = 5
	// boxTop is the box's top edge as a fraction of one frame's height.
	boxTop = 0.6
)

var (
	boxColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	textColor = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

// Options control the output video.
type Options struct {
	FPS int
	// Codec is a FourCC code such as "mp4v" or "MJPG".
	Codec     string
	Font      gocv.HersheyFont
	FontScale float64
	Thickness int
}

// DefaultOptions returns mp4v at 30 fps with a plain Hershey font.
func DefaultOptions() Options {
	return Options{
		FPS:       capture.DefaultFPS,
		Codec:     "mp4v",
		Font:      gocv.FontHersheySimplex,
		FontScale: 0.6,
		Thickness: 1,
	}
}

// Compose returns a new Mat with ref stacked over user. user is resized to
// ref's size. When msgs is not empty they are drawn in a white box centered
// horizontally at 60% of one frame's height. The caller closes the result.
func Compose(ref, user gocv.Mat, msgs []string, opts Options) gocv.Mat {
	w, h := ref.Cols(), ref.Rows()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(user, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	canvas := gocv.NewMat()
	gocv.Vconcat(ref, resized, &canvas)

	if len(msgs) > 0 {
		drawMessages(&canvas, w, h, msgs, opts)
	}
	return canvas
}

func drawMessages(canvas *gocv.Mat, w, h int, msgs []string, opts Options) {
	widths := make([]int, len(msgs))
	heights := make([]int, len(msgs))
	boxW, boxH := 0, paddingY*2+lineSpacing*(len(msgs)-1)
	for i, m := range msgs {
		size := gocv.GetTextSize(m, opts.Font, opts.FontScale, opts.Thickness)
		widths[i], heights[i] = size.X, size.Y
		boxW = max(boxW, size.X)
		boxH += size.Y
	}
	boxW += paddingX * 2

	x0 := (w - boxW) / 2
	y0 := int(float64(h) * boxTop)
	gocv.Rectangle(canvas, image.Rect(x0, y0, x0+boxW, y0+boxH), boxColor, -1)

	y := y0 + paddingY
	for i, m := range msgs {
		// PutText anchors at the baseline.
		gocv.PutText(canvas, m, image.Pt(x0+paddingX, y+heights[i]), opts.Font, opts.FontScale, textColor, opts.Thickness)
		y += heights[i] + lineSpacing
	}
}

// Video renders every frame index present in both directories, with the
// feedback of that frame, into a video at outPath. It returns the number of
// frames written. The output size is taken from the first reference frame.
func Video(ctx context.Context, ref, user *capture.FrameDir, fb feedback.Map, outPath string, opts Options) (int, error) {
	for _, d := range []*capture.FrameDir{ref, user} {
		if !d.IsOpen() {
			if err := d.Open(); err != nil {
				return 0, err
			}
			defer d.Close()
		}
	}

	total := max(ref.Len(), user.Len())
	if total == 0 {
		return 0, errors.New("render: no frames")
	}

	var writer *gocv.VideoWriter
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	var size image.Point
	written := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		refMat, userMat, ok, err := readPair(ref, user, i)
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}

		if writer == nil {
			size = image.Pt(refMat.Cols(), refMat.Rows())
			writer, err = gocv.VideoWriterFile(outPath, opts.Codec, float64(opts.FPS), size.X, size.Y*2, true)
			if err != nil {
				refMat.Close()
				userMat.Close()
				return 0, fmt.Errorf("open video writer: %w", err)
			}
		} else if refMat.Cols() != size.X || refMat.Rows() != size.Y {
			scaled := gocv.NewMat()
			gocv.Resize(*refMat, &scaled, size, 0, 0, gocv.InterpolationLinear)
			refMat.Close()
			refMat = &scaled
		}

		canvas := Compose(*refMat, *userMat, fb[i], opts)
		err = writer.Write(canvas)
		canvas.Close()
		refMat.Close()
		userMat.Close()
		if err != nil {
			return written, fmt.Errorf("write frame %d: %w", i, err)
		}
		written++
	}

	if written == 0 {
		return 0, errors.New("render: no frame present in both directories")
	}

	log.Printf("Rendered %d frames to %s", written, outPath)
	return written, nil
}

// readPair reads frame i from both directories. ok is false when either is
// missing.
func readPair(ref, user *capture.FrameDir, i int) (refMat, userMat *gocv.Mat, ok bool, err error) {
	refMat, err = ref.ReadFrameAt(i)
	if errors.Is(err, io.EOF) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}

	userMat, err = user.ReadFrameAt(i)
	if errors.Is(err, io.EOF) {
		refMat.Close()
		return nil, nil, false, nil
	}
	if err != nil {
		refMat.Close()
		return nil, nil, false, err
	}
	return refMat, userMat, true, nil
}
