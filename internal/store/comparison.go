package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Status is the lifecycle state of a comparison run.
type Status string

const (
	// StatusPending marks a run that has been created but not finished.
	StatusPending Status = "pending"
	// StatusCompleted marks a run whose result was saved.
	StatusCompleted Status = "completed"
	// StatusFailed marks a run that ended with an error.
	StatusFailed Status = "failed"
)

// Comparison is the summary row of one comparison run.
type Comparison struct {
	ID            string
	ReferenceName string
	UserName      string
	FPS           int
	Locale        string
	Status        Status
	Error         string

	FrameCount         int
	FlaggedCount       int
	MeanScore          float64
	MaxRootDistance    float64
	AngleThreshold     float64
	TrajectoryDistance float64

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ComparisonRepository provides storage operations for comparison runs.
type ComparisonRepository struct {
	db *sql.DB
}

// Comparisons returns the comparison repository for this store.
func (s *Store) Comparisons() *ComparisonRepository {
	return &ComparisonRepository{db: s.db}
}

const comparisonColumns = `id, reference_name, user_name, fps, locale, status, error,
	frame_count, flagged_count, mean_score, max_root_distance, angle_threshold,
	trajectory_distance, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComparison(row rowScanner) (*Comparison, error) {
	c := &Comparison{}
	var status string
	var completed sql.NullTime

	err := row.Scan(&c.ID, &c.ReferenceName, &c.UserName, &c.FPS, &c.Locale, &status, &c.Error,
		&c.FrameCount, &c.FlaggedCount, &c.MeanScore, &c.MaxRootDistance, &c.AngleThreshold,
		&c.TrajectoryDistance, &c.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}

	c.Status = Status(status)
	if completed.Valid {
		t := completed.Time
		c.CompletedAt = &t
	}
	return c, nil
}

// Create inserts a pending comparison. An empty ID is filled with a new UUID.
func (r *ComparisonRepository) Create(c *Comparison) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Locale == "" {
		c.Locale = string(feedback.DefaultLocale)
	}
	c.Status = StatusPending
	c.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO comparisons (id, reference_name, user_name, fps, locale, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ReferenceName, c.UserName, c.FPS, c.Locale, string(c.Status), c.CreatedAt,
	)
	return err
}

// GetByID retrieves a comparison by its ID.
func (r *ComparisonRepository) GetByID(id string) (*Comparison, error) {
	c, err := scanComparison(r.db.QueryRow(
		`SELECT `+comparisonColumns+` FROM comparisons WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List retrieves all comparisons, newest first.
func (r *ComparisonRepository) List() ([]*Comparison, error) {
	rows, err := r.db.Query(
		`SELECT ` + comparisonColumns + ` FROM comparisons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comparisons []*Comparison
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comparisons, nil
}

// Delete removes a comparison and everything stored for it.
func (r *ComparisonRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM comparisons WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkFailed records that a run ended with an error.
func (r *ComparisonRepository) MarkFailed(id string, reason string) error {
	result, err := r.db.Exec(
		`UPDATE comparisons SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(StatusFailed), reason, time.Now(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResult stores the summary, frame scores, second scores and feedback
// of a finished run in one transaction and marks it completed. Saving again
// replaces the previous result.
func (r *ComparisonRepository) SaveResult(id string, res *compare.Result) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	flagged := 0
	if res.Report != nil {
		flagged = len(res.Report.Frames)
	}

	result, err := tx.Exec(
		`UPDATE comparisons SET status = ?, error = '', fps = ?, frame_count = ?, flagged_count = ?,
		 mean_score = ?, max_root_distance = ?, angle_threshold = ?, trajectory_distance = ?,
		 completed_at = ?
		 WHERE id = ?`,
		string(StatusCompleted), res.FPS, len(res.Frames), flagged,
		res.MeanScore(), res.Stats.MaxRootDistance, res.Stats.AngleThreshold, res.TrajectoryDistance,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update comparison: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	for _, table := range []string{"frame_scores", "second_scores", "feedback_messages"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE comparison_id = ?`, id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertFrames(tx, id, res); err != nil {
		return err
	}
	if err := insertSeconds(tx, id, res.Scores.SecondScores); err != nil {
		return err
	}
	if err := insertFeedback(tx, id, res.Feedback); err != nil {
		return err
	}

	return tx.Commit()
}

func insertFrames(tx *sql.Tx, id string, res *compare.Result) error {
	stmt, err := tx.Prepare(
		`INSERT INTO frame_scores (comparison_id, frame_index, pose_score, move_score, final_score, shape_residual, flagged)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range res.Frames {
		flagged := res.Report != nil && res.Report.Flagged(f.Index)
		if _, err := stmt.Exec(id, f.Index, f.PoseScore, f.MoveScore, f.FinalScore, f.ShapeResidual, flagged); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Index, err)
		}
	}
	return nil
}

func insertSeconds(tx *sql.Tx, id string, seconds []float64) error {
	stmt, err := tx.Prepare(
		`INSERT INTO second_scores (comparison_id, second_index, score) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare second insert: %w", err)
	}
	defer stmt.Close()

	for i, score := range seconds {
		if _, err := stmt.Exec(id, i, score); err != nil {
			return fmt.Errorf("insert second %d: %w", i, err)
		}
	}
	return nil
}

func insertFeedback(tx *sql.Tx, id string, fb feedback.Map) error {
	stmt, err := tx.Prepare(
		`INSERT INTO feedback_messages (comparison_id, frame_index, position, message) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare feedback insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range fb.Frames() {
		for pos, msg := range fb[t] {
			if _, err := stmt.Exec(id, t, pos, msg); err != nil {
				return fmt.Errorf("insert feedback for frame %d: %w", t, err)
			}
		}
	}
	return nil
}

// GetScores returns the stored score artifact of a comparison.
func (r *ComparisonRepository) GetScores(id string) (similarity.ScoreArtifact, error) {
	art := similarity.ScoreArtifact{FrameScores: []float64{}, SecondScores: []float64{}}
	if _, err := r.GetByID(id); err != nil {
		return art, err
	}

	var err error
	art.FrameScores, err = r.floatColumn(
		`SELECT final_score FROM frame_scores WHERE comparison_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return art, err
	}
	art.SecondScores, err = r.floatColumn(
		`SELECT score FROM second_scores WHERE comparison_id = ? ORDER BY second_index`, id)
	if err != nil {
		return art, err
	}
	return art, nil
}

func (r *ComparisonRepository) floatColumn(query, id string) ([]float64, error) {
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetFeedback returns the feedback of a comparison. Every flagged frame has
// an entry, with an empty list when it produced no message.
func (r *ComparisonRepository) GetFeedback(id string) (feedback.Map, error) {
	if _, err := r.GetByID(id); err != nil {
		return nil, err
	}

	fb := feedback.Map{}

	rows, err := r.db.Query(
		`SELECT frame_index FROM frame_scores WHERE comparison_id = ? AND flagged = 1 ORDER BY frame_index`, id,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return nil, err
		}
		fb[t] = []string{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(
		`SELECT frame_index, message FROM feedback_messages
		 WHERE comparison_id = ? ORDER BY frame_index, position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t int
		var msg string
		if err := rows.Scan(&t, &msg); err != nil {
			return nil, err
		}
		fb[t] = append(fb[t], msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fb, nil
}
