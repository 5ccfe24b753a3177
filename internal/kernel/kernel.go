// Package kernel is the trusted boundary around the raw identity, namespace
// and netlink system calls. Nothing else in the module issues them, and
// every failure leaving this package is already one of the failure classes.
package kernel

import (
	"io"
)

// Handle is an open namespace descriptor.
type Handle interface {
	io.Closer
}

type Kernel interface {
	Getuid() int
	Geteuid() int
	Getgid() int
	Getegid() int
	Getresuid() (ruid, euid, suid int)

	Setuid(uid int) error
	Seteuid(euid int) error
	Setgid(gid int) error

	// OpenNetns opens a network namespace file read-only and close-on-exec.
	OpenNetns(path string) (Handle, error)
	// SetNetns moves the calling thread into the network namespace of h.
	// No other namespace type can be entered through it.
	SetNetns(h Handle) error
}

// Link is one network interface as seen from inside a namespace.
type Link struct {
	Name  string
	Type  string
	State string
	Addrs []string
}
