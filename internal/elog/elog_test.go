package elog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn, false)

	l.Info("should not appear")
	require.Empty(t, buf.String())

	l.Warn("should appear")
	require.Contains(t, buf.String(), "[WARN]")
	require.Contains(t, buf.String(), "should appear")
}

func TestFieldsRenderAsKeyValue(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug, false)

	l.Info("gc pass complete", F("freed", 12), F("live", 40))
	line := buf.String()
	require.Contains(t, line, "freed=12")
	require.Contains(t, line, "live=40")
}

func TestWithAttachesFieldsToEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, Debug, false)
	child := base.With(F("fiber", "main"))

	child.Info("resumed")
	require.Contains(t, buf.String(), "fiber=main")
}

func TestColorWrapsLevelTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug, true)
	l.Error("boom")
	require.True(t, strings.Contains(buf.String(), "\x1b["))
}
