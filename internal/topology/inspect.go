package topology

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
	"github.com/da-x/user-netns/internal/validate"
)

// NamespaceInfo is one named namespace and what could be read from it.
type NamespaceInfo struct {
	Name  string
	Links []kernel.Link
	Err   error
}

// LinkLister reads the links of the namespace at path.
type LinkLister func(path string) ([]kernel.Link, error)

// Inspect lists the namespaces under dir. Names that are not valid
// identifiers were not created by this tool and are skipped.
func Inspect(dir string, list LinkLister, log logrus.FieldLogger) ([]NamespaceInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []NamespaceInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ns, err := validate.Identifier(e.Name())
		if err != nil {
			log.WithField("entry", e.Name()).Warn("skipping namespace with an invalid name")
			continue
		}
		links, err := list(filepath.Join(dir, ns.String()))
		out = append(out, NamespaceInfo{Name: ns.String(), Links: links, Err: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists reports whether dir holds a namespace named ns. It needs no
// privileges: the netns directory is world-readable.
func Exists(dir string, ns validate.Token) (bool, error) {
	if err := ns.Require(validate.KindIdentifier); err != nil {
		return false, err
	}
	fi, err := os.Stat(filepath.Join(dir, ns.String()))
	switch {
	case os.IsNotExist(err):
		return false, nil
	case err != nil:
		return false, failure.NamespaceOpenError.New("%s: %v", ns, err)
	}
	return !fi.IsDir(), nil
}

// Render writes infos in the same shape as `ip -br addr`, grouped by
// namespace.
func Render(w io.Writer, infos []NamespaceInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No network namespaces found.")
		return
	}
	for i, info := range infos {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", info.Name)
		if info.Err != nil {
			fmt.Fprintf(w, "  error: %s\n", failure.Message(info.Err))
			continue
		}
		if len(info.Links) == 0 {
			fmt.Fprintln(w, "  no interfaces")
			continue
		}
		for _, l := range info.Links {
			addrs := "-"
			if len(l.Addrs) > 0 {
				addrs = strings.Join(l.Addrs, ", ")
			}
			fmt.Fprintf(w, "  %s (%s, %s): %s\n", l.Name, l.Type, l.State, addrs)
		}
	}
}
