// Package topology creates and removes bridges, namespaces and the veth
// links between them by driving the external ip tool. Every argument is a
// validated token; there is no rollback when a later step fails.
package topology

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/validate"
)

// Param is one positional argument of an operation.
type Param struct {
	Name string
	Kind validate.Kind
}

var (
	network   = Param{"network", validate.KindIdentifier}
	namespace = Param{"namespace", validate.KindIdentifier}
	address   = Param{"ip/cidr", validate.KindIPLiteral}
	iface     = Param{"interface", validate.KindIdentifier}
)

// Operation is one entry of the dispatch table.
type Operation struct {
	Name   string
	Short  string
	Params []Param
	steps  func(args []validate.Token) ([][]string, error)
}

// Usage renders the positional arguments, e.g. "<network> <ip/cidr>".
func (op *Operation) Usage() string {
	u := ""
	for i, p := range op.Params {
		if i > 0 {
			u += " "
		}
		u += "<" + p.Name + ">"
	}
	return u
}

var Operations = map[string]*Operation{
	"net-add": {
		Name:   "net-add",
		Short:  "Create a bridge network with an address and bring it up",
		Params: []Param{network, address},
		steps: func(a []validate.Token) ([][]string, error) {
			net, ip := a[0].String(), a[1].String()
			return [][]string{
				{"link", "add", net, "type", "bridge"},
				{"addr", "add", ip, "dev", net},
				{"link", "set", net, "up"},
			}, nil
		},
	},
	"net-del": {
		Name:   "net-del",
		Short:  "Delete a bridge network",
		Params: []Param{network},
		steps: func(a []validate.Token) ([][]string, error) {
			return [][]string{
				{"link", "del", a[0].String()},
			}, nil
		},
	},
	"namespace-add": {
		Name:   "namespace-add",
		Short:  "Create a network namespace with loopback up and unprivileged low ports",
		Params: []Param{namespace},
		steps: func(a []validate.Token) ([][]string, error) {
			ns := a[0].String()
			return [][]string{
				{"netns", "add", ns},
				{"netns", "exec", ns, "ip", "link", "set", "lo", "up"},
				{"netns", "exec", ns, "sysctl", "-w", "net.ipv4.ip_unprivileged_port_start=1"},
			}, nil
		},
	},
	"namespace-del": {
		Name:   "namespace-del",
		Short:  "Delete a network namespace",
		Params: []Param{namespace},
		steps: func(a []validate.Token) ([][]string, error) {
			return [][]string{
				{"netns", "del", a[0].String()},
			}, nil
		},
	},
	"net-link-namespace": {
		Name:   "net-link-namespace",
		Short:  "Connect a namespace to a bridge network with a veth pair",
		Params: []Param{network, namespace, address},
		steps: func(a []validate.Token) ([][]string, error) {
			brEnd, nsEnd, err := vethEnds(a[0], a[1])
			if err != nil {
				return nil, err
			}
			net, ns, ip := a[0].String(), a[1].String(), a[2].String()
			return [][]string{
				{"link", "add", "dev", brEnd, "type", "veth", "peer", "name", nsEnd},
				{"link", "set", brEnd, "master", net},
				{"link", "set", brEnd, "up"},
				{"link", "set", "dev", nsEnd, "netns", ns},
				{"netns", "exec", ns, "ip", "addr", "add", ip, "dev", nsEnd},
				{"netns", "exec", ns, "ip", "link", "set", nsEnd, "up"},
			}, nil
		},
	},
	"net-unlink-namespace": {
		Name:   "net-unlink-namespace",
		Short:  "Remove the veth pair between a namespace and a bridge network",
		Params: []Param{network, namespace},
		steps: func(a []validate.Token) ([][]string, error) {
			brEnd, _, err := vethEnds(a[0], a[1])
			if err != nil {
				return nil, err
			}
			// Deleting one end of a veth pair removes its peer too.
			return [][]string{
				{"link", "del", brEnd},
			}, nil
		},
	},
	"namespace-link-up": {
		Name:   "namespace-link-up",
		Short:  "Bring up an interface inside a namespace",
		Params: []Param{namespace, iface},
		steps: func(a []validate.Token) ([][]string, error) {
			return setLink(a[0], a[1], "up")
		},
	},
	"namespace-link-down": {
		Name:   "namespace-link-down",
		Short:  "Bring down an interface inside a namespace",
		Params: []Param{namespace, iface},
		steps: func(a []validate.Token) ([][]string, error) {
			return setLink(a[0], a[1], "down")
		},
	},
}

func setLink(ns, link validate.Token, state string) ([][]string, error) {
	if _, err := validate.Interface(link.String()); err != nil {
		return nil, err
	}
	return [][]string{
		{"netns", "exec", ns.String(), "ip", "link", "set", link.String(), state},
	}, nil
}

// Names lists the operations in a stable order.
func Names() []string {
	names := make([]string, 0, len(Operations))
	for n := range Operations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func vethEnds(net, ns validate.Token) (string, string, error) {
	br, err := validate.InterfaceName("br", net, ns)
	if err != nil {
		return "", "", err
	}
	peer, err := validate.InterfaceName("ns", net, ns)
	if err != nil {
		return "", "", err
	}
	return br.String(), peer.String(), nil
}

// Plan is a fully validated operation, ready to run.
type Plan struct {
	Op   *Operation
	Args []validate.Token
	argv [][]string
}

// Prepare validates args for the named operation. Nothing is executed.
func Prepare(name string, args []string) (*Plan, error) {
	op, ok := Operations[name]
	if !ok {
		return nil, failure.UsageError.New("unknown command %s", name)
	}
	if len(args) != len(op.Params) {
		return nil, failure.UsageError.New("%s: expected %s", name, op.Usage())
	}
	toks := make([]validate.Token, len(args))
	for i, p := range op.Params {
		tok, err := validate.Validate(p.Kind, args[i])
		if err != nil {
			return nil, err
		}
		toks[i] = tok
	}
	argv, err := op.steps(toks)
	if err != nil {
		return nil, err
	}
	return &Plan{Op: op, Args: toks, argv: argv}, nil
}

// Invocations returns the ip argument vectors the plan will run.
func (p *Plan) Invocations() [][]string {
	out := make([][]string, len(p.argv))
	for i, a := range p.argv {
		out[i] = append([]string(nil), a...)
	}
	return out
}

// Manager applies plans through a Tool.
type Manager struct {
	Tool Tool
	Log  logrus.FieldLogger
}

// Apply runs each invocation in order and stops at the first failure.
// Steps that already ran are left in place.
func (m *Manager) Apply(p *Plan) error {
	for i, args := range p.argv {
		if err := m.Tool.Run(args); err != nil {
			m.Log.WithFields(logrus.Fields{
				"op":   p.Op.Name,
				"step": i + 1,
				"of":   len(p.argv),
			}).Debug("step failed, not rolling back")
			return err
		}
	}
	return nil
}
