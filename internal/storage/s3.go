package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"drive-autoposter/internal"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
)

// S3Store implements Store on key prefixes of one bucket. A "folder" is a
// prefix such as "incoming/"; moving is copy + delete.
type S3Store struct {
	bucket string
	api    *awss3.Client
	dl     *manager.Downloader
	log    *logging.Logger
}

func NewS3Store(cfg internal.Config, log *logging.Logger) (*S3Store, error) {
	endpoint := cfg.S3Endpoint
	forcePathStyle := true
	if strings.Contains(endpoint, "amazonaws.com") {
		forcePathStyle = false
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = forcePathStyle
		o.BaseEndpoint = &endpoint
	})

	partSize := int64(cfg.DownloadChunkSize)
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}

	return &S3Store{
		bucket: cfg.S3Bucket,
		api:    client,
		dl: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = partSize
			d.Concurrency = 1
		}),
		log: log,
	}, nil
}

func (c *S3Store) Backend() string { return "s3" }

// FindVideo returns the first listed object under folder with a video
// extension. Listing order is lexical by key.
func (c *S3Store) FindVideo(ctx context.Context, folder string) (*model.VideoRecord, error) {
	prefix := normalizePrefix(folder)
	p := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{Bucket: &c.bucket, Prefix: &prefix})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := deref(obj.Key)
			// only direct children, like a Drive parent query
			if strings.Contains(strings.TrimPrefix(key, prefix), "/") {
				continue
			}
			mt, ok := videoMimeType(key)
			if !ok {
				continue
			}
			rec := &model.VideoRecord{
				ID:       key,
				Name:     path.Base(key),
				MimeType: mt,
				Parents:  []string{prefix},
			}
			if obj.Size != nil {
				rec.Size = *obj.Size
			}
			if obj.LastModified != nil {
				rec.CreatedTime = *obj.LastModified
			}
			return rec, nil
		}
	}
	return nil, ErrNoVideo
}

func (c *S3Store) Download(ctx context.Context, rec *model.VideoRecord, dst string) error {
	out, err := createLocal(dst)
	if err != nil {
		return fmt.Errorf("s3: create %s: %w", dst, err)
	}
	n, err := c.dl.Download(ctx, out, &awss3.GetObjectInput{Bucket: &c.bucket, Key: &rec.ID})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("s3: download %s: %w", rec.ID, err)
	}
	c.log.Infof("s3: downloaded %s to %s (%d bytes)", rec.ID, dst, n)
	return nil
}

func (c *S3Store) Move(ctx context.Context, rec *model.VideoRecord, folder string) ([]string, error) {
	dstKey := MovedKey(rec.ID, folder)
	source := c.bucket + "/" + escapeKey(rec.ID)
	if _, err := c.api.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     &c.bucket,
		CopySource: &source,
		Key:        &dstKey,
	}); err != nil {
		return nil, fmt.Errorf("s3: copy %s to %s: %w", rec.ID, dstKey, err)
	}
	if _, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: &c.bucket, Key: &rec.ID}); err != nil {
		// the copy exists, so the video now sits in both folders
		return nil, fmt.Errorf("s3: delete %s after copy: %w", rec.ID, err)
	}
	parents := []string{normalizePrefix(folder)}
	rec.ID = dstKey
	rec.Parents = parents
	return parents, nil
}

// MovedKey is key relocated under the folder prefix, keeping its base name.
func MovedKey(key, folder string) string {
	return normalizePrefix(folder) + path.Base(key)
}

func normalizePrefix(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
