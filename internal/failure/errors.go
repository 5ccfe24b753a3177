package failure

import (
	"strings"

	"github.com/spacemonkeygo/errors"
)

type ExitCode int

const (
	EXIT_FAILURE        = ExitCode(1)
	EXIT_NOT_EXECUTABLE = ExitCode(126)
	EXIT_NOT_FOUND      = ExitCode(127)
	EXIT_SIGNAL_BASE    = ExitCode(128) // plus the signal number, same as shells report it.
)

var ExitCodeKey = errors.GenSym()

// grouping, do not instantiate
var Error *errors.ErrorClass = errors.NewClass("UserNetnsError")

/*
	Raised when an untrusted string does not match the allow-list grammar
	it was offered for.  Always caller input; never retried.
*/
var ValidationError *errors.ErrorClass = Error.NewClass("ValidationError")

/*
	Raised for the wrong number of positional arguments or an unknown
	subcommand.
*/
var UsageError *errors.ErrorClass = Error.NewClass("UsageError")

/*
	Raised when the system configuration file exists but cannot be
	trusted or parsed.
*/
var ConfigError *errors.ErrorClass = Error.NewClass("ConfigError")

/*
	Raised when a namespace backing file is missing or unreadable.
*/
var NamespaceOpenError *errors.ErrorClass = Error.NewClass("NamespaceOpenError")

/*
	Raised when the kernel refuses the network namespace switch.
*/
var NamespaceSwitchError *errors.ErrorClass = Error.NewClass("NamespaceSwitchError")

/*
	Raised when any escalate or drop call fails, or when a privilege token
	is used out of order.

	This is the most severe class: nothing may run after it.
*/
var PrivilegeError *errors.ErrorClass = Error.NewClass("PrivilegeError")

/*
	Raised when the caller's program could not be started at all.
*/
var LaunchError *errors.ErrorClass = Error.NewClass("LaunchError")

/*
	Raised when an invocation of the external network configuration tool
	fails to start or exits non-zero.
*/
var ExternalToolError *errors.ErrorClass = Error.NewClass("ExternalToolError")

/*
	Not a failure of ours: carries the exit status of the launched program
	up to main, which exits with it silently.
*/
var Exit *errors.ErrorClass = errors.NewClass("Exit")

/*
	Use this to set a specific code the process should exit with.

	Example: `failure.Exit.NewWith("program exited", SetExitCode(3))`
*/
func SetExitCode(code ExitCode) errors.ErrorOption {
	return errors.SetData(ExitCodeKey, code)
}

// ExitCodeOf returns the exit code attached to err, or EXIT_FAILURE.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return 0
	}
	if code, ok := errors.GetData(err, ExitCodeKey).(ExitCode); ok {
		return code
	}
	return EXIT_FAILURE
}

// Is reports whether err belongs to class or one of its subclasses.
func Is(err error, class *errors.ErrorClass) bool {
	if err == nil {
		return false
	}
	return errors.GetClass(err).Is(class)
}

// Message returns the error text without class names or stack traces.
func Message(err error) string {
	if err == nil {
		return ""
	}
	e, ok := err.(*errors.Error)
	if !ok {
		return err.Error()
	}
	if w := e.WrappedErr(); w != nil {
		return Message(w)
	}
	return strings.TrimPrefix(errors.GetMessage(e), errors.GetClass(e).String()+": ")
}
