package launchd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlist(t *testing.T) {
	data, err := BuildPlist(InstallOptions{
		Label:       DefaultLabel,
		ProgramPath: "/usr/local/bin/ideaforge",
		ProgramArgs: []string{"--config", "/Users/me/a&b.yaml", "serve"},
		LogPath:     "/tmp/ideaforge.log",
	})
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, "<string>com.ideaforge.serve</string>")
	assert.Contains(t, out, "<string>/usr/local/bin/ideaforge</string>\n      <string>--config</string>")
	assert.Contains(t, out, "/Users/me/a&amp;b.yaml")
	assert.Contains(t, out, "<key>KeepAlive</key>\n    <true/>")
	assert.NotContains(t, out, "StartInterval")
	assert.Contains(t, out, "<string>/tmp/ideaforge.log</string>")
}

func TestBuildPlistRequiresLabelAndProgram(t *testing.T) {
	_, err := BuildPlist(InstallOptions{ProgramPath: "/bin/x"})
	assert.Error(t, err)
	_, err = BuildPlist(InstallOptions{Label: "x"})
	assert.Error(t, err)
}

func TestStateLine(t *testing.T) {
	assert.Equal(t, "state = running", stateLine("gui/501/x = {\n\tstate = running\n\tpid = 4\n}"))
	assert.Equal(t, "loaded", stateLine("nothing useful"))
}
