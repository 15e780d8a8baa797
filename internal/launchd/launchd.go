// Package launchd installs the long-running server as a macOS user agent.
package launchd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// DefaultLabel identifies the agent in launchctl.
const DefaultLabel = "com.ideaforge.serve"

var ErrUnsupported = errors.New("launchd is only available on macOS")

// InstallOptions describes the agent. The scheduler inside the server owns the
// job intervals, so the agent is kept alive rather than started on an interval.
type InstallOptions struct {
	Label       string
	ProgramPath string   // absolute path to this binary
	ProgramArgs []string // args after ProgramPath
	LogPath     string   // stdout and stderr
	PlistPath   string   // optional custom plist path
}

func DefaultAgentPath(label string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ideaforge.launchd.log")
	}
	return filepath.Join(home, "Library", "Logs", "IdeaForge", "serve.log")
}

var plistTmpl = template.Must(template.New("plist").Funcs(template.FuncMap{"esc": escape}).Parse(
	`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
  <dict>
    <key>Label</key>
    <string>{{esc .Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
      <string>{{esc .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{esc .LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{esc .LogPath}}</string>
  </dict>
</plist>
`))

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// BuildPlist renders the agent definition.
func BuildPlist(opt InstallOptions) ([]byte, error) {
	if opt.Label == "" {
		return nil, errors.New("label required")
	}
	if opt.ProgramPath == "" {
		return nil, errors.New("program path required")
	}
	if opt.LogPath == "" {
		opt.LogPath = defaultLogPath()
	}
	data := struct {
		Label   string
		Args    []string
		LogPath string
	}{
		Label:   opt.Label,
		Args:    append([]string{opt.ProgramPath}, opt.ProgramArgs...),
		LogPath: opt.LogPath,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := plistTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Install writes the plist and loads it via launchctl. It returns the plist path.
func Install(opt InstallOptions) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", ErrUnsupported
	}
	if opt.Label == "" {
		opt.Label = DefaultLabel
	}
	if opt.LogPath == "" {
		opt.LogPath = defaultLogPath()
	}
	plistPath, err := resolvePlist(opt.Label, opt.PlistPath)
	if err != nil {
		return "", err
	}
	data, err := BuildPlist(opt)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(opt.LogPath), 0o755); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(plistPath, data, 0o644); err != nil {
		return "", err
	}

	lctl := launchctlPath()
	if lctl == "" {
		return plistPath, errors.New("launchctl not found in /bin, /usr/bin, or PATH")
	}
	domain := userDomain()
	if err := exec.Command(lctl, "bootstrap", domain, plistPath).Run(); err != nil {
		if err2 := exec.Command(lctl, "load", "-w", plistPath).Run(); err2 != nil {
			return plistPath, fmt.Errorf("launchctl bootstrap/load failed: %v / %v", err, err2)
		}
		return plistPath, nil
	}
	_ = exec.Command(lctl, "enable", domain+"/"+opt.Label).Run()
	return plistPath, nil
}

// Uninstall unloads and removes the plist.
func Uninstall(label, plistPath string) error {
	if runtime.GOOS != "darwin" {
		return ErrUnsupported
	}
	if label == "" {
		label = DefaultLabel
	}
	plistPath, err := resolvePlist(label, plistPath)
	if err != nil {
		return err
	}
	lctl := launchctlPath()
	if lctl == "" {
		return errors.New("launchctl not found")
	}
	if err := exec.Command(lctl, "bootout", userDomain(), plistPath).Run(); err != nil {
		_ = exec.Command(lctl, "unload", "-w", plistPath).Run()
	}
	if err := os.Remove(plistPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Status reports whether the agent is loaded plus launchctl's state line.
func Status(label string) (bool, string) {
	if runtime.GOOS != "darwin" {
		return false, "unsupported"
	}
	if label == "" {
		label = DefaultLabel
	}
	lctl := launchctlPath()
	if lctl == "" {
		return false, "launchctl not found"
	}
	out, err := exec.Command(lctl, "print", userDomain()+"/"+label).CombinedOutput()
	if err != nil {
		return false, "not loaded"
	}
	return true, stateLine(string(out))
}

func stateLine(out string) string {
	for _, ln := range strings.Split(out, "\n") {
		if strings.Contains(ln, "state = ") {
			return strings.TrimSpace(ln)
		}
	}
	return "loaded"
}

func resolvePlist(label, path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	return DefaultAgentPath(label)
}

func userDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func launchctlPath() string {
	for _, c := range []string{"/bin/launchctl", "/usr/bin/launchctl"} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if p, err := exec.LookPath("launchctl"); err == nil {
		return p
	}
	return ""
}
