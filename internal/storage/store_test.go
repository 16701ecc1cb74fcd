package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive-autoposter/internal/logging"
)

func TestVideoMimeType(t *testing.T) {
	mt, ok := videoMimeType("incoming/Clip.MP4")
	assert.True(t, ok)
	assert.Equal(t, "video/mp4", mt)

	_, ok = videoMimeType("incoming/notes.txt")
	assert.False(t, ok)
	_, ok = videoMimeType("incoming/")
	assert.False(t, ok)
}

func TestMovedKey(t *testing.T) {
	assert.Equal(t, "done/a.mp4", MovedKey("incoming/a.mp4", "done"))
	assert.Equal(t, "done/a.mp4", MovedKey("incoming/a.mp4", "done/"))
	assert.Equal(t, "a.mp4", MovedKey("incoming/a.mp4", ""))
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "incoming/my%20clip.mp4", escapeKey("incoming/my clip.mp4"))
}

func TestCopyInChunks(t *testing.T) {
	src := strings.Repeat("abc", 100)
	var dst bytes.Buffer
	n, err := copyInChunks(&dst, strings.NewReader(src), 7, int64(len(src)), "test", logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.String())
}

func TestDescribeProgress(t *testing.T) {
	assert.Equal(t, "10 bytes", describeProgress(10, 0))
	assert.Equal(t, "50/200 bytes (25%)", describeProgress(50, 200))
}
