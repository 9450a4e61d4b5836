// Package logging provides the logger used across the server and client.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Logger wraps the standard log.Logger.
type Logger struct {
	*log.Logger
}

// Options control output destination and prefix decoration.
type Options struct {
	Level         string // decorates the prefix; filtering is left to the reader
	FilePath      string // when set, output is mirrored to a rolling file
	FileMaxSizeMB int
}

// New returns a logger writing to stderr. The server banner and session
// lifecycle messages go through this.
func New(prefix string) *Logger {
	return &Logger{Logger: log.New(os.Stderr, prefix+" ", log.LstdFlags)}
}

// Discard returns a logger that drops everything. Useful in tests and for
// clients that want a silent call path.
func Discard() *Logger {
	return &Logger{Logger: log.New(io.Discard, "", 0)}
}

// Configure applies output options to an existing logger.
func (l *Logger) Configure(opts Options) error {
	if l == nil || l.Logger == nil {
		return nil
	}
	if opts.Level != "" {
		l.SetPrefix(strings.ToUpper(opts.Level) + " " + l.Prefix())
	}
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o700); err != nil {
			return err
		}
		writer, err := newRollingFile(opts.FilePath, opts.FileMaxSizeMB)
		if err != nil {
			return err
		}
		l.SetOutput(io.MultiWriter(os.Stderr, writer))
	}
	return nil
}

type rollingFile struct {
	path string
	max  int
	file *os.File
}

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &rollingFile{path: path, max: maxMB, file: f}, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	if r.max > 0 {
		if info, err := r.file.Stat(); err == nil && info.Size()+int64(len(p)) > int64(r.max)*1024*1024 {
			r.file.Close()
			os.Rename(r.path, r.path+".1")
			newFile, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return 0, err
			}
			r.file = newFile
		}
	}
	return r.file.Write(p)
}
