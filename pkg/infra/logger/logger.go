package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level string
	// File enables the buffered file writer. Entries are mirrored to Console.
	File    string
	Console io.Writer
}

// NewLogger builds the JSON logger and returns a closer that flushes file output.
func NewLogger(opts Options) (*logrus.Logger, func(), error) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(parseLevel(opts.Level))

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	if opts.File == "" {
		logger.SetOutput(console)
		return logger, func() {}, nil
	}

	logFile := filepath.Clean(opts.File)
	if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
		return nil, nil, err
	}
	asyncWriter, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		return nil, nil, err
	}

	logger.SetOutput(asyncWriter)
	logger.AddHook(NewConsoleHook(console))

	return logger, asyncWriter.Close, nil
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
