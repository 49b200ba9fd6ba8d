package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogStorage writes captured step output to files under a base directory.
type LogStorage struct {
	BaseDir string
}

func NewLogStorage(baseDir string) *LogStorage {
	return &LogStorage{BaseDir: baseDir}
}

// SaveLog writes the output of one step and returns the file path.
// Filenames carry a timestamp so successive runs never clobber each other.
func (ls *LogStorage) SaveLog(pipeline, step, output string) (string, error) {
	if err := os.MkdirAll(ls.BaseDir, 0o775); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.log", sanitize(pipeline), sanitize(step), timestamp)
	filePath := filepath.Join(ls.BaseDir, filename)

	if err := os.WriteFile(filePath, []byte(output), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// sanitize strips characters that do not belong in filenames.
func sanitize(name string) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_':
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return "step"
	}
	return string(clean)
}
