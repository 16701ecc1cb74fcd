package notify

import (
	"bytes"
	"os"
	"strings"

	"github.com/samber/lo"
)

const tailBlockSize = 4096

// TailLastNLines returns up to n trailing lines of the file at path. The file
// is read backwards in blocks, so only the tail is ever loaded.
func TailLastNLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	// n+1 newlines guarantee n complete lines even with a trailing newline
	var tail []byte
	off, newlines := st.Size(), 0
	for off > 0 && newlines <= n {
		step := min(int64(tailBlockSize), off)
		off -= step
		block := make([]byte, step)
		if _, err := f.ReadAt(block, off); err != nil {
			return nil, err
		}
		newlines += bytes.Count(block, []byte{'\n'})
		tail = append(block, tail...)
	}

	text := strings.TrimSuffix(string(tail), "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	if off > 0 {
		// first segment starts mid-line
		lines = lines[1:]
	}
	lines = lines[max(0, len(lines)-n):]
	return lo.Map(lines, func(l string, _ int) string {
		return strings.TrimSuffix(l, "\r")
	}), nil
}
