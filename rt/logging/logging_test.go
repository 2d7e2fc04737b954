package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	l := NewDefaultLogger("logtest", false)
	assert.False(t, l.DebugEnabled())

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed %s", "stage")
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "failed stage")
	assert.Contains(t, buf.String(), "[logtest]")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("visible %d", 3)
	assert.Contains(t, buf.String(), "visible 3")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.SetDebug(true)
	assert.False(t, l.DebugEnabled())

	d := NewDefaultLogger("ornop", false)
	assert.Same(t, d, OrNop(d))
}
