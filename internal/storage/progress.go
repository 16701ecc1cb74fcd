package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"drive-autoposter/internal/logging"
)

// copyInChunks streams src into dst chunk by chunk until EOF, logging
// progress at most every few seconds.
func copyInChunks(dst io.Writer, src io.Reader, chunkSize int, total int64, label string, log *logging.Logger) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 8 << 20
	}
	buf := make([]byte, chunkSize)
	progress := rate.Sometimes{First: 1, Interval: 5 * time.Second}

	var written int64
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			progress.Do(func() { log.Infof("%s: %s", label, describeProgress(written, total)) })
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func describeProgress(done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%d bytes", done)
	}
	return fmt.Sprintf("%d/%d bytes (%.0f%%)", done, total, float64(done)/float64(total)*100)
}

// createLocal opens dst for writing, creating its directory if needed.
func createLocal(dst string) (*os.File, error) {
	if dir := filepath.Dir(dst); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(dst)
}
