// Package pipeline runs one pass of the bot: authenticate, pick a video,
// download it, optionally edit it, publish it everywhere, archive it and
// clean up. Only authentication, locating and downloading can end a run
// early; every later failure is recorded and the run carries on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drive-autoposter/internal/auth"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
	"drive-autoposter/internal/storage"
	"drive-autoposter/internal/uploaders"
)

const (
	RawFileName    = "video.mp4"
	EditedFileName = "edited.mp4"
)

type Authenticator interface {
	Authenticate(ctx context.Context) (*auth.Services, error)
}

type Editor interface {
	Edit(ctx context.Context, src, dst string) error
}

type Publisher interface {
	UploadAll(ctx context.Context, req *uploaders.UploadRequest) []*uploaders.UploadResult
}

type MetadataSource interface {
	Metadata() model.PublishMetadata
}

type Notifier interface {
	NotifyRun(ctx context.Context, r *model.RunReport) error
}

// Connect builds the storage and publishing sides from authenticated
// service handles.
type Connect func(ctx context.Context, svcs *auth.Services) (storage.Store, Publisher, error)

type Options struct {
	SourceFolder string
	DoneFolder   string
	WorkDir      string
	EditEnabled  bool
}

type Runner struct {
	log      *logging.Logger
	opts     Options
	auth     Authenticator
	connect  Connect
	meta     MetadataSource
	editor   Editor
	notifier Notifier
	now      func() time.Time
}

type Option func(*Runner)

func WithEditor(e Editor) Option { return func(r *Runner) { r.editor = e } }

func WithNotifier(n Notifier) Option { return func(r *Runner) { r.notifier = n } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func New(log *logging.Logger, opts Options, a Authenticator, connect Connect, meta MetadataSource, extra ...Option) *Runner {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	r := &Runner{
		log:     log,
		opts:    opts,
		auth:    a,
		connect: connect,
		meta:    meta,
		now:     time.Now,
	}
	for _, o := range extra {
		o(r)
	}
	return r
}

func (r *Runner) rawPath() string    { return filepath.Join(r.opts.WorkDir, RawFileName) }
func (r *Runner) editedPath() string { return filepath.Join(r.opts.WorkDir, EditedFileName) }

// Run executes one pass. The report is always returned; the error is
// non-nil only for the fatal outcomes (auth, locate, download).
func (r *Runner) Run(ctx context.Context) (report *model.RunReport, err error) {
	report = &model.RunReport{StartedAt: r.now()}
	defer func() {
		report.Add(r.cleanup())
		report.FinishedAt = r.now()
		r.log.Infof("pipeline: %s", report.Summary())
		r.notify(ctx, report)
	}()

	svcs, err := r.auth.Authenticate(ctx)
	if err == nil {
		var store storage.Store
		var pub Publisher
		if store, pub, err = r.connect(ctx, svcs); err == nil {
			report.Add(model.StageResult{Stage: model.StageAuth, Status: model.StatusOK})
			return report, r.process(ctx, report, store, pub)
		}
	}
	r.log.Errorf("auth: %v", err)
	report.Add(model.StageResult{Stage: model.StageAuth, Status: model.StatusFailed, Err: err})
	report.Outcome = model.OutcomeAuthFailed
	return report, fmt.Errorf("authenticate: %w", err)
}

func (r *Runner) process(ctx context.Context, report *model.RunReport, store storage.Store, pub Publisher) error {
	rec, err := store.FindVideo(ctx, r.opts.SourceFolder)
	if errors.Is(err, storage.ErrNoVideo) {
		r.log.Infof("No videos found in folder %s", r.opts.SourceFolder)
		report.Add(model.StageResult{Stage: model.StageLocate, Status: model.StatusSkipped})
		report.Outcome = model.OutcomeNoVideo
		return nil
	}
	if err != nil {
		r.log.Errorf("locate: %v", err)
		report.Add(model.StageResult{Stage: model.StageLocate, Status: model.StatusFailed, Err: err})
		report.Outcome = model.OutcomeLocateFailed
		return fmt.Errorf("locate video: %w", err)
	}
	report.Video = rec
	report.Add(model.StageResult{
		Stage:  model.StageLocate,
		Status: model.StatusOK,
		Detail: map[string]string{"id": rec.ID, "name": rec.Name, "backend": store.Backend()},
	})
	r.log.Infof("%s: found %s (%s)", store.Backend(), rec.Name, rec.ID)

	raw := r.rawPath()
	if err := store.Download(ctx, rec, raw); err != nil {
		r.log.Errorf("download: %v", err)
		report.Add(model.StageResult{Stage: model.StageDownload, Status: model.StatusFailed, Err: err})
		report.Outcome = model.OutcomeDownloadFailed
		return fmt.Errorf("download %s: %w", rec.Name, err)
	}
	report.Add(model.StageResult{Stage: model.StageDownload, Status: model.StatusOK})

	media := r.edit(ctx, report, raw)

	meta := r.meta.Metadata()
	report.Title = meta.Title
	r.log.Infof("publish: %s as %q", media.Path, meta.Title)
	for _, res := range pub.UploadAll(ctx, uploaders.NewRequest(media.Path, meta)) {
		sr := model.StageResult{Stage: model.PublishStage(res.Platform), Status: model.StatusOK, Detail: res.Details}
		if res.URL != "" {
			if sr.Detail == nil {
				sr.Detail = map[string]string{}
			}
			sr.Detail["url"] = res.URL
		}
		if !res.Success {
			sr.Status = model.StatusFailed
			sr.Err = errors.New(res.Error)
		}
		report.Add(sr)
	}

	// archived whatever the upload outcome
	if report.Published() == 0 {
		r.log.Warnf("publish: no platform accepted %s, archiving anyway", rec.Name)
	}
	parents, err := store.Move(ctx, rec, r.opts.DoneFolder)
	if err != nil {
		r.log.Errorf("archive: %v", err)
		report.Add(model.StageResult{Stage: model.StageArchive, Status: model.StatusFailed, Err: err})
	} else {
		r.log.Infof("archive: moved %s to %v", rec.Name, parents)
		report.Add(model.StageResult{Stage: model.StageArchive, Status: model.StatusOK})
	}

	report.Outcome = model.OutcomeCompleted
	return nil
}

// edit returns the file to publish: the edited clip, or the raw download
// when editing is off or fails.
func (r *Runner) edit(ctx context.Context, report *model.RunReport, raw string) model.LocalMedia {
	if r.editor == nil || !r.opts.EditEnabled {
		report.Add(model.StageResult{Stage: model.StageEdit, Status: model.StatusSkipped})
		return model.LocalMedia{Path: raw, Kind: model.MediaRaw}
	}
	out := r.editedPath()
	if err := r.editor.Edit(ctx, raw, out); err != nil {
		r.log.Errorf("edit failed, publishing the original: %v", err)
		report.Add(model.StageResult{Stage: model.StageEdit, Status: model.StatusFailed, Err: err})
		return model.LocalMedia{Path: raw, Kind: model.MediaRaw}
	}
	report.Add(model.StageResult{Stage: model.StageEdit, Status: model.StatusOK})
	return model.LocalMedia{Path: out, Kind: model.MediaEdited}
}

// cleanup removes both local files; missing ones are fine.
func (r *Runner) cleanup() model.StageResult {
	var errs []error
	for _, p := range []string{r.rawPath(), r.editedPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.log.Warnf("cleanup: %v", err)
		return model.StageResult{Stage: model.StageCleanup, Status: model.StatusFailed, Err: err}
	}
	return model.StageResult{Stage: model.StageCleanup, Status: model.StatusOK}
}

func (r *Runner) notify(ctx context.Context, report *model.RunReport) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyRun(ctx, report); err != nil {
		r.log.Warnf("notify: %v", err)
	}
}
