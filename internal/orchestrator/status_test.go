// internal/orchestrator/status_test.go
package orchestrator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusDisplay_SingleSlot(t *testing.T) {
	var out bytes.Buffer
	d := NewStatusDisplay(&out)

	d.Progress("Capturing page...")
	d.Progress("Sending to API...")
	progress, errMsg, success := d.Current()
	assert.Equal(t, "Sending to API...", progress)
	assert.Empty(t, errMsg)
	assert.Empty(t, success)

	d.Error("upload failed")
	progress, errMsg, success = d.Current()
	assert.Empty(t, progress)
	assert.Equal(t, "upload failed", errMsg)
	assert.Empty(t, success)

	d.Success("Sent!")
	progress, errMsg, success = d.Current()
	assert.Empty(t, progress)
	assert.Empty(t, errMsg)
	assert.Equal(t, "Sent!", success)

	assert.True(t, strings.HasSuffix(out.String(), "Sent!\n"))
}
