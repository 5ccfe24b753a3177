//go:build linux

package kernel

import (
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/da-x/user-netns/internal/failure"
)

// Host is the Kernel of the running process. Identity changes go through
// the syscall package's setuid family, which applies them to every thread
// of the process.
func Host() Kernel { return host{} }

type host struct{}

type nsHandle struct {
	h netns.NsHandle
}

func (n *nsHandle) Close() error { return n.h.Close() }

func (host) Getuid() int  { return unix.Getuid() }
func (host) Geteuid() int { return unix.Geteuid() }
func (host) Getgid() int  { return unix.Getgid() }
func (host) Getegid() int { return unix.Getegid() }

func (host) Getresuid() (int, int, int) { return unix.Getresuid() }

func (host) Setuid(uid int) error {
	if err := unix.Setuid(uid); err != nil {
		return failure.PrivilegeError.New("setuid(%d): %v", uid, err)
	}
	return nil
}

func (host) Seteuid(euid int) error {
	// -1 leaves the real and saved uid alone.
	if err := unix.Setresuid(-1, euid, -1); err != nil {
		return failure.PrivilegeError.New("seteuid(%d): %v", euid, err)
	}
	return nil
}

func (host) Setgid(gid int) error {
	if err := unix.Setgid(gid); err != nil {
		return failure.PrivilegeError.New("setgid(%d): %v", gid, err)
	}
	return nil
}

func (host) OpenNetns(path string) (Handle, error) {
	// GetFromPath opens O_RDONLY|O_CLOEXEC.
	h, err := netns.GetFromPath(path)
	if err != nil {
		return nil, failure.NamespaceOpenError.New("open %s: %v", path, err)
	}
	return &nsHandle{h}, nil
}

func (host) SetNetns(h Handle) error {
	n, ok := h.(*nsHandle)
	if !ok || !n.h.IsOpen() {
		return failure.NamespaceSwitchError.New("not an open namespace handle")
	}
	// netns.Set is setns(fd, CLONE_NEWNET).
	if err := netns.Set(n.h); err != nil {
		return failure.NamespaceSwitchError.New("setns: %v", err)
	}
	return nil
}

// ListLinks reports the links and IPv4 addresses of the network namespace
// at path. It does not move the calling thread.
func ListLinks(path string) ([]Link, error) {
	h, err := netns.GetFromPath(path)
	if err != nil {
		return nil, failure.NamespaceOpenError.New("open %s: %v", path, err)
	}
	defer h.Close()

	nh, err := netlink.NewHandleAt(h)
	if err != nil {
		return nil, failure.NamespaceSwitchError.New("netlink handle in %s: %v", path, err)
	}
	defer nh.Close()

	links, err := nh.LinkList()
	if err != nil {
		return nil, failure.NamespaceSwitchError.New("list links in %s: %v", path, err)
	}

	out := make([]Link, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		info := Link{
			Name:  attrs.Name,
			Type:  l.Type(),
			State: attrs.OperState.String(),
		}
		addrs, err := nh.AddrList(l, netlink.FAMILY_V4)
		if err == nil {
			for _, a := range addrs {
				info.Addrs = append(info.Addrs, a.IPNet.String())
			}
		}
		out = append(out, info)
	}
	return out, nil
}
