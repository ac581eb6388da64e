package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/report"
	"github.com/yujeong-lee-1996/temp-kpop/internal/store"
)

// ChartFile is the score chart written next to the run artifacts.
const ChartFile = "scores.png"

// run executes one comparison for an already recorded run.
//
// Steps:
// 1. Compare under the configured timeout
// 2. Persist the result, or mark the run failed
// 3. Write feedback.json, scores.json and the score chart
// 4. Announce the outcome
func (a *App) run(ctx context.Context, c *store.Comparison, ref, user pose.Sequence) (*compare.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.engine.Compare(ctx, ref, user)
	if err != nil {
		a.fail(c, err)
		return nil, err
	}

	if s := a.config.Store; s != nil {
		if err := s.Comparisons().SaveResult(c.ID, res); err != nil {
			err = fmt.Errorf("save result: %w", err)
			a.fail(c, err)
			return nil, err
		}
		if saved, err := s.Comparisons().GetByID(c.ID); err == nil {
			*c = *saved
		}
	} else {
		c.Status = store.StatusCompleted
		c.FrameCount = len(res.Frames)
		c.FlaggedCount = len(res.Report.Frames)
		c.MeanScore = res.MeanScore()
	}

	if dir := a.ArtifactDir(c.ID); dir != "" {
		a.writeArtifacts(dir, c, res)
	}

	a.publish(Event{
		Type:          EventCompleted,
		ID:            c.ID,
		FinalScore:    res.MeanScore(),
		FlaggedFrames: len(res.Report.Frames),
	})

	return res, nil
}

// writeArtifacts logs failures instead of failing the run; the stored
// result stays authoritative.
func (a *App) writeArtifacts(dir string, c *store.Comparison, res *compare.Result) {
	if _, _, err := compare.WriteArtifacts(dir, res); err != nil {
		log.Printf("Error writing artifacts for %s: %v", c.ID, err)
		return
	}
	if len(res.Scores.FrameScores) == 0 {
		return
	}
	title := fmt.Sprintf("%s vs %s", c.ReferenceName, c.UserName)
	if err := report.SaveScoreChart(filepath.Join(dir, ChartFile), title, res.Scores, res.FPS); err != nil {
		log.Printf("Error writing score chart for %s: %v", c.ID, err)
	}
}

func (a *App) fail(c *store.Comparison, err error) {
	c.Status = store.StatusFailed
	c.Error = err.Error()

	if s := a.config.Store; s != nil {
		if mErr := s.Comparisons().MarkFailed(c.ID, err.Error()); mErr != nil {
			log.Printf("Error marking comparison %s failed: %v", c.ID, mErr)
		}
	}

	a.publish(Event{Type: EventFailed, ID: c.ID, Error: err.Error()})
}
