package handlers

import (
	"os"
	"strings"
)

// logTailer reads a run log incrementally by byte offset. Partial lines
// at the tail are held back until their newline arrives.
type logTailer struct {
	path   string
	offset int64
}

func newLogTailer(path string) *logTailer {
	return &logTailer{path: path}
}

// exists reports whether the log file is on disk yet
func (t *logTailer) exists() bool {
	_, err := os.Stat(t.path)
	return err == nil
}

// readNewLines returns complete lines appended since the last call. A
// truncated file (new run) resets the offset to zero.
func (t *logTailer) readNewLines() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < t.offset {
		t.offset = 0
	}
	if info.Size() == t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, 0); err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size()-t.offset)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	chunk := string(buf[:n])

	lastNL := strings.LastIndexByte(chunk, '\n')
	if lastNL < 0 {
		return nil, nil
	}
	t.offset += int64(lastNL + 1)

	var lines []string
	for _, line := range strings.Split(chunk[:lastNL], "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
