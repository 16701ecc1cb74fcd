package model

import (
	"fmt"
	"strings"
	"time"
)

// VideoRecord is the storage-side file picked for this run.
type VideoRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	Parents     []string  `json:"parents,omitempty"`
	CreatedTime time.Time `json:"created_time,omitempty"`
	Size        int64     `json:"size,omitempty"`
}

type MediaKind string

const (
	MediaRaw    MediaKind = "raw"
	MediaEdited MediaKind = "edited"
)

// LocalMedia is a video file on local disk owned by the current run.
type LocalMedia struct {
	Path string    `json:"path"`
	Kind MediaKind `json:"kind"`
}

// PublishMetadata is everything the uploaders need besides the file.
type PublishMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Caption     string   `json:"caption"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Privacy     string   `json:"privacy"` // public, unlisted, private
	MadeForKids bool     `json:"made_for_kids"`
}

type Stage string

const (
	StageAuth     Stage = "auth"
	StageLocate   Stage = "locate"
	StageDownload Stage = "download"
	StageEdit     Stage = "edit"
	StagePublish  Stage = "publish" // suffixed with the platform, e.g. publish:youtube
	StageArchive  Stage = "archive"
	StageCleanup  Stage = "cleanup"
)

type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// StageResult is what each pipeline step hands back to the orchestrator.
type StageResult struct {
	Stage  Stage             `json:"stage"`
	Status StageStatus       `json:"status"`
	Err    error             `json:"-"`
	Detail map[string]string `json:"detail,omitempty"`
}

func (r StageResult) Failed() bool { return r.Status == StatusFailed }

func (r StageResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s=%s (%v)", r.Stage, r.Status, r.Err)
	}
	return fmt.Sprintf("%s=%s", r.Stage, r.Status)
}

type Outcome string

const (
	OutcomeAuthFailed     Outcome = "auth_failed"
	OutcomeNoVideo        Outcome = "no_video"
	OutcomeLocateFailed   Outcome = "locate_failed"
	OutcomeDownloadFailed Outcome = "download_failed"
	OutcomeCompleted      Outcome = "completed"
)

// RunReport summarises one invocation. It lives only in memory.
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcome    Outcome       `json:"outcome"`
	Video      *VideoRecord  `json:"video,omitempty"`
	Title      string        `json:"title,omitempty"`
	Stages     []StageResult `json:"stages"`
}

func (r *RunReport) Add(res StageResult) {
	r.Stages = append(r.Stages, res)
}

// Stage returns the last result recorded for s.
func (r *RunReport) Stage(s Stage) (StageResult, bool) {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Stage == s {
			return r.Stages[i], true
		}
	}
	return StageResult{}, false
}

// Published counts successful publish stages.
func (r *RunReport) Published() int {
	n := 0
	for _, s := range r.Stages {
		if strings.HasPrefix(string(s.Stage), string(StagePublish)) && s.Status == StatusOK {
			n++
		}
	}
	return n
}

func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s", r.Outcome)
	if r.Video != nil {
		fmt.Fprintf(&b, " video=%q", r.Video.Name)
	}
	if r.Title != "" {
		fmt.Fprintf(&b, " title=%q", r.Title)
	}
	for _, s := range r.Stages {
		b.WriteString("\n  ")
		b.WriteString(s.String())
	}
	return b.String()
}

// PublishStage names the publish stage for one platform.
func PublishStage(platform string) Stage {
	return Stage(string(StagePublish) + ":" + platform)
}
