package nsenter

import (
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
	"github.com/da-x/user-netns/internal/privilege"
	"github.com/da-x/user-netns/internal/validate"
)

// DefaultDir is where iproute2 keeps named network namespaces.
const DefaultDir = "/run/netns"

// Enter switches the calling thread into the network namespace dir/<ns>.
//
// The goroutine stays locked to its OS thread afterwards: that thread now
// lives in the target namespace, and the command launched later must be
// forked from it.
func Enter(p *privilege.Escalated, k kernel.Kernel, dir string, ns validate.Token, log logrus.FieldLogger) error {
	if err := ns.Require(validate.KindIdentifier); err != nil {
		return err
	}
	if !p.Active() {
		return failure.PrivilegeError.New("namespace entry requires escalated privileges")
	}

	path := filepath.Join(dir, ns.String())
	h, err := k.OpenNetns(path)
	if err != nil {
		return failure.NamespaceOpenError.New("could not open namespace %s: %s", ns, failure.Message(err))
	}
	defer h.Close()

	runtime.LockOSThread()
	if err := k.SetNetns(h); err != nil {
		return failure.NamespaceSwitchError.New("could not enter namespace %s: %s", ns, failure.Message(err))
	}
	log.WithField("namespace", ns.String()).Debug("entered network namespace")
	return nil
}
