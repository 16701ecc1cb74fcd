package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"google.golang.org/api/drive/v3"

	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
)

// DriveStore implements Store on Google Drive folders.
type DriveStore struct {
	svc       *drive.Service
	log       *logging.Logger
	orderBy   string
	chunkSize int
}

// NewDriveStore wraps an authenticated Drive service. orderBy is passed to
// files.list verbatim (e.g. "createdTime"); empty keeps the API's own order.
func NewDriveStore(svc *drive.Service, log *logging.Logger, orderBy string, chunkSize int) *DriveStore {
	return &DriveStore{svc: svc, log: log, orderBy: orderBy, chunkSize: chunkSize}
}

func (d *DriveStore) Backend() string { return "drive" }

// SourceQuery builds the files.list filter for videos directly inside folder.
func SourceQuery(folder string) string {
	return fmt.Sprintf("'%s' in parents and mimeType contains 'video/' and trashed=false", escapeQuery(folder))
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func (d *DriveStore) FindVideo(ctx context.Context, folder string) (*model.VideoRecord, error) {
	call := d.svc.Files.List().
		Q(SourceQuery(folder)).
		Fields("files(id, name, mimeType, parents, createdTime, size)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if d.orderBy != "" {
		call = call.OrderBy(d.orderBy)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("drive: list %s: %w", folder, err)
	}
	if len(res.Files) == 0 {
		return nil, ErrNoVideo
	}

	f := res.Files[0]
	rec := &model.VideoRecord{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Size:     f.Size,
	}
	if ts, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		rec.CreatedTime = ts
	}
	return rec, nil
}

func (d *DriveStore) Download(ctx context.Context, rec *model.VideoRecord, dst string) error {
	resp, err := d.svc.Files.Get(rec.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("drive: download %s: %w", rec.ID, err)
	}
	defer resp.Body.Close()

	out, err := createLocal(dst)
	if err != nil {
		return fmt.Errorf("drive: create %s: %w", dst, err)
	}

	total := rec.Size
	if total <= 0 {
		total = resp.ContentLength
	}
	n, err := copyInChunks(out, resp.Body, d.chunkSize, total, "drive: download", d.log)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("drive: download %s: %w", rec.ID, err)
	}
	d.log.Infof("drive: downloaded %s to %s (%d bytes)", rec.Name, dst, n)
	return nil
}

// Move swaps the file's parents: adds folder, removes every current parent.
func (d *DriveStore) Move(ctx context.Context, rec *model.VideoRecord, folder string) ([]string, error) {
	cur, err := d.svc.Files.Get(rec.ID).Fields("parents").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive: get parents of %s: %w", rec.ID, err)
	}

	call := d.svc.Files.Update(rec.ID, &drive.File{}).AddParents(folder)
	if prev := strings.Join(lo.Without(cur.Parents, folder), ","); prev != "" {
		call = call.RemoveParents(prev)
	}
	upd, err := call.Fields("id, parents").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive: move %s to %s: %w", rec.ID, folder, err)
	}
	rec.Parents = upd.Parents
	return upd.Parents, nil
}
