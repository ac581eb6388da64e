package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

const scriptName = "pose_service.py"

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New(scriptName + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each request is a 4-byte big-endian length followed by a JPEG image on the
// service's stdin. Each response is one JSON line on stdout:
// {"pose": {"points": [33 x {x,y,z,visibility}], "score": s}} or {"pose": null}.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastUsed   time.Time
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findPoseScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScriptNotFound, err)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns the detected pose landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	// Encode frame as JPEG
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeRequest(d.stdin, buf.GetBytes()); err != nil {
		return nil, err
	}

	lm, err := readResponse(d.stdout)
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return lm, nil
}

// writeRequest writes one length-prefixed image.
func writeRequest(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// readResponse reads one JSON response line.
func readResponse(r *bufio.Reader) (*Landmarks, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Pose *jsonPose `json:"pose"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Pose == nil {
		return nil, nil
	}
	return response.Pose.toLandmarks()
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	// Use virtual environment Python if available
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findPoseScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".posecoach", "scripts", scriptName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	// Get executable directory to find project root
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".posecoach/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonPose represents the JSON structure from the Python service.
type jsonPose struct {
	Points []Landmark `json:"points"`
	Score  float64    `json:"score"`
}

func (p jsonPose) toLandmarks() (*Landmarks, error) {
	if len(p.Points) != pose.NumJoints {
		return nil, fmt.Errorf("parse response: expected %d points, got %d", pose.NumJoints, len(p.Points))
	}

	lm := &Landmarks{Score: p.Score}
	copy(lm.Points[:], p.Points)
	return lm, nil
}
