// Package privilege owns the invoking identity and the one-way walk
// Initial -> Escalated -> Dropped.
//
// Each state is its own type and each transition consumes its receiver, so
// code holding a stale state cannot replay a transition. Namespace entry
// demands an *Escalated and the command executor demands a *Dropped, which
// puts the required ordering into the function signatures.
package privilege

import (
	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
)

type State int

const (
	StateInitial State = iota
	StateEscalated
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "unprivileged-initial"
	case StateEscalated:
		return "escalated"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// identity is the real uid/gid of whoever ran the binary.
type identity struct {
	uid int
	gid int
}

// machine is shared by every token of one capture. It only moves forward.
type machine struct {
	k     kernel.Kernel
	id    identity
	state State
	log   logrus.FieldLogger
}

func (m *machine) advance(from, to State) error {
	if m.state != from {
		return failure.PrivilegeError.New("illegal privilege transition %s -> %s (currently %s)", from, to, m.state)
	}
	m.state = to
	m.log.WithField("state", to).Debug("privilege state changed")
	return nil
}

type Initial struct{ m *machine }
type Escalated struct{ m *machine }
type Dropped struct{ m *machine }

// Capture records the real identity. It must be the first thing the process
// does. When running setuid-root it also parks the effective uid at the
// real uid; the saved uid keeps root for the later Escalate.
func Capture(k kernel.Kernel, log logrus.FieldLogger) (*Initial, error) {
	m := &machine{
		k:     k,
		id:    identity{uid: k.Getuid(), gid: k.Getgid()},
		state: StateInitial,
		log:   log,
	}
	if k.Geteuid() != m.id.uid {
		if err := k.Seteuid(m.id.uid); err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{"uid": m.id.uid, "gid": m.id.gid}).Debug("captured invoking identity")
	return &Initial{m}, nil
}

// Escalate sets both the effective and the real uid to root.
func (s *Initial) Escalate() (*Escalated, error) {
	if s == nil || s.m == nil {
		return nil, failure.PrivilegeError.New("escalate without a captured identity")
	}
	m := s.m
	if err := m.advance(StateInitial, StateEscalated); err != nil {
		return nil, err
	}
	s.m = nil

	if err := m.k.Seteuid(0); err != nil {
		return nil, notSetuid(err)
	}
	if err := m.k.Setuid(0); err != nil {
		return nil, notSetuid(err)
	}
	if m.k.Getuid() != 0 || m.k.Geteuid() != 0 {
		return nil, failure.PrivilegeError.New("escalation did not take effect (uid=%d euid=%d); is the binary installed setuid root?", m.k.Getuid(), m.k.Geteuid())
	}
	return &Escalated{m}, nil
}

func notSetuid(err error) error {
	return failure.PrivilegeError.New("cannot become root: %s; is the binary installed setuid root?", failure.Message(err))
}

// Active reports whether this token is still the current state.
func (s *Escalated) Active() bool {
	return s != nil && s.m != nil && s.m.state == StateEscalated
}

// Drop permanently returns to the invoking identity: gid first, then the
// real uid, then the effective uid. Any failure is fatal to the caller; the
// returned error must never be retried or ignored.
func (s *Escalated) Drop() (*Dropped, error) {
	if !s.Active() {
		return nil, failure.PrivilegeError.New("drop from a privilege state that is not escalated")
	}
	m := s.m
	s.m = nil
	id := m.id

	if m.k.Getegid() != id.gid || m.k.Getgid() != id.gid {
		if err := m.k.Setgid(id.gid); err != nil {
			return nil, dropFailed(err)
		}
	}
	if err := m.k.Setuid(id.uid); err != nil {
		return nil, dropFailed(err)
	}
	if err := m.k.Seteuid(id.uid); err != nil {
		return nil, dropFailed(err)
	}

	ruid, euid, suid := m.k.Getresuid()
	if ruid != id.uid || euid != id.uid || suid != id.uid {
		return nil, failure.PrivilegeError.New("privilege drop incomplete: uid=%d euid=%d suid=%d, want %d", ruid, euid, suid, id.uid)
	}
	if id.uid != 0 {
		// Root must be unreachable from here on.
		if err := m.k.Setuid(0); err == nil {
			return nil, failure.PrivilegeError.New("privilege drop is reversible: setuid(0) succeeded")
		}
	}

	if err := m.advance(StateEscalated, StateDropped); err != nil {
		return nil, err
	}
	return &Dropped{m}, nil
}

func dropFailed(err error) error {
	return failure.PrivilegeError.New("privilege drop failed: %s", failure.Message(err))
}

// Confirmed reports whether this token came out of a completed Drop.
func (d *Dropped) Confirmed() bool {
	return d != nil && d.m != nil && d.m.state == StateDropped
}
