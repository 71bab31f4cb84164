package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: WarnLevel, Output: &buf})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("backend failover", "from", "primary")
	assert.Contains(t, buf.String(), "backend failover")
	assert.Contains(t, buf.String(), "primary")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
	l.With("claim_id", 7).Info("claim submitted")
	assert.Contains(t, buf.String(), `"claim_id":7`)
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, GetDefault(), FromContext(context.Background()))

	nop := NewNop()
	ctx := ContextWithLogger(context.Background(), nop)
	assert.Equal(t, nop, FromContext(ctx))
}
