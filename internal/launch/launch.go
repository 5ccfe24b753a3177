package launch

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/spacemonkeygo/errors"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/privilege"
)

// Invocation is the caller's program and its arguments, passed through
// untouched.
type Invocation struct {
	Program string
	Args    []string
}

type Outcome int

const (
	Exited Outcome = iota
	Signaled
	LaunchFailed
)

// Result is the tagged outcome of one spawn-and-wait.
type Result struct {
	Outcome Outcome
	Code    int            // set when Exited
	Signal  syscall.Signal // set when Signaled
	Err     error          // set when LaunchFailed
}

// ExitStatus is the status this process should exit with to relay r.
func (r Result) ExitStatus() failure.ExitCode {
	switch r.Outcome {
	case Exited:
		return failure.ExitCode(r.Code)
	case Signaled:
		return failure.EXIT_SIGNAL_BASE + failure.ExitCode(r.Signal)
	default:
		if r.Err == nil {
			return failure.EXIT_FAILURE
		}
		return failure.ExitCodeOf(r.Err)
	}
}

// Launcher starts programs with the given standard streams.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Inherit returns a Launcher handing the process's own streams to the child.
func Inherit() *Launcher {
	return &Launcher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Launch runs inv and waits for it. It refuses to do anything unless d is a
// completed privilege drop.
func (l *Launcher) Launch(d *privilege.Dropped, inv Invocation) Result {
	if !d.Confirmed() {
		return failed(failure.PrivilegeError, failure.EXIT_FAILURE, "refusing to launch %s before privileges are dropped", inv.Program)
	}
	if inv.Program == "" {
		return failed(failure.LaunchError, failure.EXIT_FAILURE, "no program given")
	}

	// Program lookup uses the caller's PATH, after the drop.
	cmd := exec.Command(inv.Program, inv.Args...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	err := cmd.Run()
	if err == nil {
		return Result{Outcome: Exited, Code: 0}
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return Result{Outcome: Signaled, Signal: ws.Signal()}
		}
		if code := exitErr.ExitCode(); code >= 0 {
			return Result{Outcome: Exited, Code: code}
		}
		return failed(failure.LaunchError, failure.EXIT_FAILURE, "%s: terminated without an exit status", inv.Program)
	}

	switch {
	case stderrors.Is(err, exec.ErrNotFound), stderrors.Is(err, os.ErrNotExist):
		return failed(failure.LaunchError, failure.EXIT_NOT_FOUND, "%s: command not found", inv.Program)
	case stderrors.Is(err, os.ErrPermission), stderrors.Is(err, syscall.ENOEXEC):
		return failed(failure.LaunchError, failure.EXIT_NOT_EXECUTABLE, "%s: not executable", inv.Program)
	default:
		return failed(failure.LaunchError, failure.EXIT_FAILURE, "%s: %v", inv.Program, err)
	}
}

func failed(class *errors.ErrorClass, code failure.ExitCode, format string, args ...interface{}) Result {
	return Result{
		Outcome: LaunchFailed,
		Err:     class.NewWith(fmt.Sprintf(format, args...), failure.SetExitCode(code)),
	}
}
