// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for SCCACHECTL_LOG_FILE.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
)

// InitLogger sets up Apex with a custom handler and a log level from the
// SCCACHECTL_LOG env variable. CI logs are the only user interface, so the
// default level is INFO. When SCCACHECTL_LOG_FILE is set, lines are also
// appended to that file with size based rotation.
func InitLogger() {
	level := strings.ToUpper(os.Getenv("SCCACHECTL_LOG"))
	if level == "" {
		level = "INFO"
	}

	w, fileErr := buildOutput(os.Getenv("SCCACHECTL_LOG_FILE"))
	log.SetHandler(NewHandler(w))
	if fileErr != nil {
		log.WithError(fileErr).Warn("logging to stdout only")
	}

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.Warnf("unknown SCCACHECTL_LOG level %q, using INFO", level)
		return
	}
	log.SetLevel(lvl)
}

func buildOutput(file string) (io.Writer, error) {
	if file == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil { //nolint:mnd
		return os.Stdout, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		LocalTime:  true,
	}
	return io.MultiWriter(os.Stdout, rotator), nil
}

// CustomHandler formats log messages and writes them to w.
type CustomHandler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a CustomHandler writing to w.
func NewHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface. Fields are appended as
// sorted key=value pairs.
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := h.now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
