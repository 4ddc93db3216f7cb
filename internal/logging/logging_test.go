package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLine(t *testing.T) {
	var b strings.Builder
	logger := New(&b, false)

	logger.Info("fetched exports", "count", 42, "region", "eu-west-1")
	assert.Equal(t, "[INFO] fetched exports count=42 region=eu-west-1\n", b.String())
}

func TestQuotingOnlyWhenAmbiguous(t *testing.T) {
	var b strings.Builder
	logger := New(&b, false)

	logger.Info("msg", "name", "has space", "plain", "bare")
	assert.Equal(t, "[INFO] msg name=\"has space\" plain=bare\n", b.String())
}

func TestDebugGatedByVerbose(t *testing.T) {
	var quiet strings.Builder
	New(&quiet, false).Debug("hidden")
	assert.Empty(t, quiet.String())

	var loud strings.Builder
	New(&loud, true).Debug("shown")
	assert.Equal(t, "[DEBUG] shown\n", loud.String())
}

func TestWithAttrsAndGroup(t *testing.T) {
	var b strings.Builder
	logger := New(&b, false).With("stack", "prod-billing-db").WithGroup("fetch")

	logger.Info("done", "pages", 3)
	assert.Equal(t, "[INFO] done stack=prod-billing-db fetch.pages=3\n", b.String())
}
