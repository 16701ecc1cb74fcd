package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReportPublishedAndSummary(t *testing.T) {
	r := &RunReport{Outcome: OutcomeCompleted, Video: &VideoRecord{ID: "1", Name: "clip1.mp4"}, Title: "Winners Never Quit 🏆"}
	r.Add(StageResult{Stage: StageDownload, Status: StatusOK})
	r.Add(StageResult{Stage: PublishStage("youtube"), Status: StatusOK})
	r.Add(StageResult{Stage: PublishStage("instagram"), Status: StatusFailed, Err: errors.New("challenge_required")})

	assert.Equal(t, 1, r.Published())
	assert.Equal(t, Stage("publish:youtube"), PublishStage("youtube"))

	ig, ok := r.Stage(PublishStage("instagram"))
	assert.True(t, ok)
	assert.True(t, ig.Failed())

	_, ok = r.Stage(StageArchive)
	assert.False(t, ok)

	s := r.Summary()
	assert.Contains(t, s, "run completed")
	assert.Contains(t, s, `video="clip1.mp4"`)
	assert.Contains(t, s, "publish:instagram=failed (challenge_required)")
}
