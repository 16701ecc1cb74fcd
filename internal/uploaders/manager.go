package uploaders

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/samber/lo"

	"drive-autoposter/internal/logging"
)

// Manager runs the configured uploaders in registration order. Each upload
// is isolated: an error or panic in one never stops the next.
type Manager struct {
	uploaders []Uploader
	log       *logging.Logger
}

func NewManager(log *logging.Logger, ups ...Uploader) *Manager {
	m := &Manager{log: log}
	for _, u := range ups {
		m.AddUploader(u)
	}
	return m
}

// AddUploader adds or replaces an uploader for a platform
func (m *Manager) AddUploader(u Uploader) {
	for i, cur := range m.uploaders {
		if cur.Platform() == u.Platform() {
			m.uploaders[i] = u
			return
		}
	}
	m.uploaders = append(m.uploaders, u)
}

// AvailablePlatforms returns the platform names in upload order.
func (m *Manager) AvailablePlatforms() []string {
	return lo.Map(m.uploaders, func(u Uploader, _ int) string { return u.Platform() })
}

// UploadAll uploads to every platform once, in order, and returns one
// result per platform.
func (m *Manager) UploadAll(ctx context.Context, req *UploadRequest) []*UploadResult {
	results := make([]*UploadResult, 0, len(m.uploaders))
	for _, u := range m.uploaders {
		res := m.safeUpload(ctx, u, req)
		if res.Success {
			m.log.Infof("%s: ✓ uploaded %s", u.Platform(), res.URL)
		} else {
			m.log.Errorf("%s: upload failed: %s", u.Platform(), res.Error)
		}
		results = append(results, res)
	}
	return results
}

func (m *Manager) safeUpload(ctx context.Context, u Uploader, req *UploadRequest) (res *UploadResult) {
	platform := u.Platform()
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("%s: upload panicked: %v\n%s", platform, r, debug.Stack())
			res = failed(platform, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := u.Upload(ctx, req)
	switch {
	case err != nil && res == nil:
		res = failed(platform, err)
	case err != nil:
		res.Success = false
		res.Error = err.Error()
	case res == nil:
		res = &UploadResult{Success: true, Platform: platform}
	}
	if res.Platform == "" {
		res.Platform = platform
	}
	return res
}
