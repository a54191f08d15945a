package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AsyncFileWriter buffers log lines in a channel and flushes them from one goroutine.
// Lines are dropped when the channel is full rather than blocking request handlers.
type AsyncFileWriter struct {
	writer    *bufio.Writer
	file      *os.File
	logChan   chan []byte
	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
}

func NewAsyncFileWriter(logFile string, bufferSize int) (*AsyncFileWriter, error) {
	file, err := os.OpenFile(filepath.Clean(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	aw := &AsyncFileWriter{
		writer:   bufio.NewWriterSize(file, bufferSize),
		file:     file,
		logChan:  make(chan []byte, 1000),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go aw.processLogs()
	return aw, nil
}

func (aw *AsyncFileWriter) Write(p []byte) (int, error) {
	select {
	case aw.logChan <- append([]byte{}, p...):
	default:
	}
	return len(p), nil
}

func (aw *AsyncFileWriter) processLogs() {
	defer close(aw.finished)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case logData := <-aw.logChan:
			if _, err := aw.writer.Write(logData); err != nil {
				fmt.Fprintln(os.Stderr, "error writing log data to file", err)
			}
		case <-ticker.C:
			_ = aw.writer.Flush()
		case <-aw.done:
			for {
				select {
				case logData := <-aw.logChan:
					_, _ = aw.writer.Write(logData)
				default:
					_ = aw.writer.Flush()
					return
				}
			}
		}
	}
}

// Close drains pending lines, flushes and closes the file.
func (aw *AsyncFileWriter) Close() {
	aw.closeOnce.Do(func() {
		close(aw.done)
		<-aw.finished
		_ = aw.file.Close()
	})
}
