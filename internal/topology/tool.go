package topology

import (
	"bytes"
	stderrors "errors"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
)

// Tool runs the external network configuration tool once with a fixed
// argument list.
type Tool interface {
	Run(args []string) error
}

// IPTool runs iproute2's ip by absolute path. It runs as root, so it never
// sees the caller's environment.
type IPTool struct {
	Path     string
	ToolPath string // PATH for ip and whatever `ip netns exec` starts
	Stdout   io.Writer
	Log      logrus.FieldLogger
}

func (t *IPTool) env() []string {
	return []string{
		"PATH=" + t.ToolPath,
		"LC_ALL=C",
	}
}

func (t *IPTool) Run(args []string) error {
	line := "ip " + strings.Join(args, " ")
	t.Log.WithField("cmd", line).Debug("running")

	var stderr bytes.Buffer
	cmd := exec.Command(t.Path, args...)
	cmd.Env = t.env()
	cmd.Dir = "/"
	cmd.Stdout = t.Stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return failure.ExternalToolError.New("%s: exited with status %d: %s", line, exitErr.ExitCode(), firstLine(stderr.String()))
	}
	return failure.ExternalToolError.New("%s: %v", line, err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
