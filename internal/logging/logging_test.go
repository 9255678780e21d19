package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	assert.NotNil(t, l)
	// Must not panic.
	l.Warn("dropped")
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).Warn("rollback failed", "path", "a.md")
	FromContext(ctx).Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "rollback failed")
	assert.Contains(t, out, "path=a.md")
	assert.NotContains(t, out, "hidden")
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Debug("resolving", "source", "owner/repo")
	assert.Contains(t, buf.String(), "resolving")
}
