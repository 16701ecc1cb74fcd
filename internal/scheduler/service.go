package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"drive-autoposter/internal"
	"drive-autoposter/internal/auth"
	"drive-autoposter/internal/content"
	"drive-autoposter/internal/instagram"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
	"drive-autoposter/internal/notify"
	"drive-autoposter/internal/pipeline"
	"drive-autoposter/internal/storage"
	"drive-autoposter/internal/uploaders"
	"drive-autoposter/internal/video"
)

// cronParser accepts both 5-field and 6-field (leading seconds) specs.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const stopTimeout = 10 * time.Second

type Service struct {
	cfg    internal.Config
	log    *logging.Logger
	runner *pipeline.Runner

	// s3 is built once at startup; the Drive store needs an authenticated client
	s3 *storage.S3Store
	// optional Telegram channel publisher, checked against the Bot API at startup
	channel *uploaders.TelegramUploader

	// run is the job the cron loop fires; RunOnce by default.
	run func(ctx context.Context) (*model.RunReport, error)
}

// BuildService wires every stage from cfg. Nothing touches the network here
// except the optional Telegram bot check.
func BuildService(cfg internal.Config, log *logging.Logger) (*Service, error) {
	catalog, err := content.LoadCatalog(cfg.ContentFile)
	if err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, log: log}

	if cfg.StorageBackend == internal.BackendS3 {
		if s.s3, err = storage.NewS3Store(cfg, log); err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
	}

	opts := []pipeline.Option{
		pipeline.WithEditor(video.NewEditor(log, cfg.EditPadColor)),
	}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.ErrorsLog, "", nil, log)
		if err != nil {
			log.Warnf("telegram disabled: %v", err)
		} else {
			opts = append(opts, pipeline.WithNotifier(tg))
		}
	}

	if cfg.TelegramChannelEnabled() {
		if s.channel, err = uploaders.NewTelegramUploader(cfg.TelegramToken, cfg.TelegramChannelID, "", nil, log); err != nil {
			log.Warnf("telegram channel disabled: %v", err)
		}
	}

	s.runner = pipeline.New(log, pipeline.Options{
		SourceFolder: cfg.SourceFolder(),
		DoneFolder:   cfg.DoneFolder(),
		WorkDir:      cfg.WorkDir,
		EditEnabled:  cfg.EditEnabled,
	},
		auth.NewAuthenticator(auth.CredentialFromConfig(cfg), log),
		s.connect,
		content.NewPicker(catalog, nil),
		opts...,
	)
	s.run = s.RunOnce
	return s, nil
}

// connect builds the per-run store and publishers from fresh service handles.
func (s *Service) connect(_ context.Context, svcs *auth.Services) (storage.Store, pipeline.Publisher, error) {
	var store storage.Store
	switch s.cfg.StorageBackend {
	case internal.BackendS3:
		if s.s3 == nil {
			return nil, nil, errors.New("s3 store not configured")
		}
		store = s.s3
	default:
		if svcs.Drive == nil {
			return nil, nil, errors.New("drive service missing")
		}
		store = storage.NewDriveStore(svcs.Drive, s.log, s.cfg.SourceOrderBy, s.cfg.DownloadChunkSize)
	}
	if svcs.YouTube == nil {
		return nil, nil, errors.New("youtube service missing")
	}

	ups := []uploaders.Uploader{
		uploaders.NewYouTubeUploader(svcs.YouTube, s.cfg.YouTubeChunkSize, s.log),
		uploaders.NewInstagramUploader(uploaders.InstagramLogin(s.cfg.InstaAPIURL, instagram.Credentials{
			Username: s.cfg.InstaUsername,
			Password: s.cfg.InstaPassword,
			Session:  s.cfg.InstaSession,
		}, s.log), nil, s.log),
	}
	if s.cfg.XEnabled() {
		ups = append(ups, uploaders.NewXUploader(uploaders.DefaultXBaseURL,
			s.cfg.XConsumerKey, s.cfg.XConsumerSecret, s.cfg.XAccessToken, s.cfg.XAccessTokenSecret, s.log))
	}
	if s.channel != nil {
		ups = append(ups, s.channel)
	}
	return store, uploaders.NewManager(s.log, ups...), nil
}

// RunOnce performs a single pass of the pipeline.
func (s *Service) RunOnce(ctx context.Context) (*model.RunReport, error) {
	return s.runner.Run(ctx)
}

// Run fires a pass on every tick of spec until ctx is cancelled. A tick that
// lands while the previous pass is still going is skipped.
func (s *Service) Run(ctx context.Context, spec string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cron.PrintfLogger(s.log)
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		s.log.Infof("cron: run started")
		report, err := s.run(ctx)
		if err != nil {
			s.log.Errorf("cron: run failed: %v", err)
			return
		}
		s.log.Infof("cron: run finished (%s)", report.Outcome)
	}); err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}

	c.Start()
	s.log.Infof("cron: scheduled %q", spec)

	mw := newMemWatcher(s.log, cancel)
	go mw.run(ctx)

	<-ctx.Done()

	ctxStop := c.Stop()
	select {
	case <-ctxStop.Done():
		if mw.tripped() {
			return errors.New("stopped by memory watcher")
		}
		return nil
	case <-time.After(stopTimeout):
		return errors.New("cron stop timeout")
	}
}
