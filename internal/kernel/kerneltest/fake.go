// Package kerneltest provides an in-memory Kernel whose identity rules follow
// Linux setuid semantics, with a call log and failure injection.
package kerneltest

import (
	"fmt"
	"strings"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
)

// Fake starts as a setuid-root binary invoked by Uid/Gid.
type Fake struct {
	Ruid, Euid, Suid int
	Rgid, Egid       int

	// Namespaces maps openable paths to a namespace label.
	Namespaces map[string]string
	// Current is the label of the namespace the "thread" is in.
	Current string

	// Fail makes the named operation ("setuid", "seteuid", "setgid",
	// "open", "setns") return an error. A key of the form "setuid(1000)"
	// only fails that exact call.
	Fail map[string]bool

	// Calls records every mutating call in order.
	Calls []string

	Handles []*Handle
}

type Handle struct {
	Label  string
	Closed bool
}

func (h *Handle) Close() error {
	h.Closed = true
	return nil
}

// NewSetuid returns a Fake for a setuid-root binary run by uid/gid.
func NewSetuid(uid, gid int) *Fake {
	return &Fake{
		Ruid: uid, Euid: 0, Suid: 0,
		Rgid: gid, Egid: gid,
		Namespaces: map[string]string{},
		Current:    "host",
		Fail:       map[string]bool{},
	}
}

var _ kernel.Kernel = &Fake{}

func (f *Fake) failing(op string, arg int) bool {
	return f.Fail[op] || f.Fail[fmt.Sprintf("%s(%d)", op, arg)]
}

func (f *Fake) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// Called reports whether any recorded call starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *Fake) Getuid() int                 { return f.Ruid }
func (f *Fake) Geteuid() int                { return f.Euid }
func (f *Fake) Getgid() int                 { return f.Rgid }
func (f *Fake) Getegid() int                { return f.Egid }
func (f *Fake) Getresuid() (int, int, int) { return f.Ruid, f.Euid, f.Suid }

func (f *Fake) Setuid(uid int) error {
	f.record("setuid(%d)", uid)
	if f.failing("setuid", uid) {
		return failure.PrivilegeError.New("setuid(%d): operation not permitted", uid)
	}
	switch {
	case f.Euid == 0:
		f.Ruid, f.Euid, f.Suid = uid, uid, uid
	case uid == f.Ruid || uid == f.Suid:
		f.Euid = uid
	default:
		return failure.PrivilegeError.New("setuid(%d): operation not permitted", uid)
	}
	return nil
}

func (f *Fake) Seteuid(euid int) error {
	f.record("seteuid(%d)", euid)
	if f.failing("seteuid", euid) {
		return failure.PrivilegeError.New("seteuid(%d): operation not permitted", euid)
	}
	if f.Euid != 0 && euid != f.Ruid && euid != f.Suid {
		return failure.PrivilegeError.New("seteuid(%d): operation not permitted", euid)
	}
	f.Euid = euid
	return nil
}

func (f *Fake) Setgid(gid int) error {
	f.record("setgid(%d)", gid)
	if f.failing("setgid", gid) || f.Euid != 0 {
		return failure.PrivilegeError.New("setgid(%d): operation not permitted", gid)
	}
	f.Rgid, f.Egid = gid, gid
	return nil
}

func (f *Fake) OpenNetns(path string) (kernel.Handle, error) {
	f.record("open(%s)", path)
	label, ok := f.Namespaces[path]
	if !ok || f.Fail["open"] {
		return nil, failure.NamespaceOpenError.New("open %s: no such file or directory", path)
	}
	h := &Handle{Label: label}
	f.Handles = append(f.Handles, h)
	return h, nil
}

func (f *Fake) SetNetns(h kernel.Handle) error {
	f.record("setns")
	fh, ok := h.(*Handle)
	if !ok || fh.Closed {
		return failure.NamespaceSwitchError.New("not an open namespace handle")
	}
	if f.Fail["setns"] || f.Euid != 0 {
		return failure.NamespaceSwitchError.New("setns: operation not permitted")
	}
	f.Current = fh.Label
	return nil
}

// AllHandlesClosed reports whether every opened handle has been closed.
func (f *Fake) AllHandlesClosed() bool {
	for _, h := range f.Handles {
		if !h.Closed {
			return false
		}
	}
	return true
}
