// Package nsexec runs one caller command inside a named network namespace:
// escalate, enter, drop, launch. A failing step stops every later one.
package nsexec

import (
	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
	"github.com/da-x/user-netns/internal/launch"
	"github.com/da-x/user-netns/internal/nsenter"
	"github.com/da-x/user-netns/internal/privilege"
	"github.com/da-x/user-netns/internal/validate"
)

type Launcher interface {
	Launch(d *privilege.Dropped, inv launch.Invocation) launch.Result
}

type Runner struct {
	Kernel   kernel.Kernel
	NetnsDir string
	Launcher Launcher
	Log      logrus.FieldLogger
}

// Run consumes initial. The returned Result is only meaningful when err is
// nil; any error means the caller's program was never started.
func (r *Runner) Run(initial *privilege.Initial, ns validate.Token, inv launch.Invocation) (launch.Result, error) {
	if err := ns.Require(validate.KindIdentifier); err != nil {
		return launch.Result{}, err
	}

	esc, err := initial.Escalate()
	if err != nil {
		return launch.Result{}, err
	}
	if err := nsenter.Enter(esc, r.Kernel, r.NetnsDir, ns, r.Log); err != nil {
		return launch.Result{}, err
	}
	dropped, err := esc.Drop()
	if err != nil {
		return launch.Result{}, err
	}

	r.Log.WithField("program", inv.Program).Debug("launching")
	res := r.Launcher.Launch(dropped, inv)
	if res.Outcome == launch.LaunchFailed {
		if res.Err == nil {
			res.Err = failure.LaunchError.New("%s could not be started", inv.Program)
		}
		return res, res.Err
	}
	return res, nil
}
