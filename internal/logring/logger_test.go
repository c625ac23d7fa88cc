package logring

import (
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerSeverityMapping(t *testing.T) {
	buf := NewBuffer(nil)
	logger := NewLogger(buf)

	logger.Debug("timer %d", 3)
	logger.Info("joined %s", "m1")
	logger.Warn("careful")
	logger.Error("failed: %v", "boom")
	logger.Success("won")

	entries := buf.Entries()
	require.Len(t, entries, 5)

	assert.Equal(t, SeverityInfo, entries[0].Severity)
	assert.True(t, entries[0].Silent)
	assert.Equal(t, "timer 3", entries[0].Message)

	assert.Equal(t, SeverityInfo, entries[1].Severity)
	assert.False(t, entries[1].Silent)
	assert.Equal(t, "joined m1", entries[1].Message)

	assert.Equal(t, SeverityWarning, entries[2].Severity)
	assert.Equal(t, SeverityError, entries[3].Severity)
	assert.Equal(t, "failed: boom", entries[3].Message)
	assert.Equal(t, SeveritySuccess, entries[4].Severity)
}

func TestLoggerKeepsPercentWithoutArgs(t *testing.T) {
	buf := NewBuffer(nil)
	NewLogger(buf).Info("100% done")
	assert.Equal(t, "100% done", buf.Entries()[0].Message)
}

func TestLoggerWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := NewBuffer(nil)
	parent := NewLogger(buf)
	child := parent.WithField("match_id", "m1").WithFields(map[string]interface{}{"op": 1})

	child.Info("child")
	parent.Info("parent")

	entries := buf.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"match_id": "m1", "op": 1}, entries[0].Fields)
	assert.Empty(t, entries[1].Fields)
	assert.Empty(t, parent.Fields())
}

type plainLogger struct {
	runtime.Logger
	infos []string
}

func (p *plainLogger) Info(format string, v ...interface{}) { p.infos = append(p.infos, format) }

func TestSucceedFallsBackToInfo(t *testing.T) {
	buf := NewBuffer(nil)
	Succeed(NewLogger(buf), "winner")
	assert.Equal(t, SeveritySuccess, buf.Entries()[0].Severity)

	plain := &plainLogger{}
	Succeed(plain, "winner")
	assert.Equal(t, []string{"winner"}, plain.infos)
}
