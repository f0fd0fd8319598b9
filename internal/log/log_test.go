// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedHandler(buf *bytes.Buffer) *CustomHandler {
	h := NewHandler(buf)
	h.now = func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return h
}

func TestHandleLog(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: fixedHandler(&buf), Level: log.DebugLevel}

	logger.Info("restore sccache files")
	assert.Equal(t, "2026-01-02 03:04:05 I restore sccache files\n", buf.String())
}

func TestHandleLog_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: fixedHandler(&buf), Level: log.DebugLevel}

	logger.WithFields(log.Fields{"path": "/tmp/x", "key": "sccache-abc"}).Warn("saving")
	assert.Equal(t, "2026-01-02 03:04:05 W saving key=sccache-abc path=/tmp/x\n", buf.String())
}

func TestHandleLog_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: fixedHandler(&buf), Level: log.DebugLevel}

	logger.WithError(errors.New("boom")).Error("delete failed")
	assert.Contains(t, buf.String(), " E delete failed error=boom")
}

func TestInitLogger_Level(t *testing.T) {
	tests := []struct {
		env  string
		want log.Level
	}{
		{env: "", want: log.InfoLevel},
		{env: "debug", want: log.DebugLevel},
		{env: "ERROR", want: log.ErrorLevel},
		{env: "chatty", want: log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("SCCACHECTL_LOG", tt.env)
			InitLogger()
			l, ok := log.Log.(*log.Logger)
			if assert.True(t, ok) {
				assert.Equal(t, tt.want, l.Level)
			}
		})
	}
}

func TestInitLogger_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "sccachectl.log")
	t.Setenv("SCCACHECTL_LOG", "info")
	t.Setenv("SCCACHECTL_LOG_FILE", file)

	InitLogger()
	log.Info("hello from the file")

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "I hello from the file")
}

func TestBuildOutput_Stdout(t *testing.T) {
	w, err := buildOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
}
