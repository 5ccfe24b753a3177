// Package validate classifies untrusted strings against strict allow-lists
// before they are used in filesystem paths or in the argument vector of a
// privileged external tool.
package validate

import (
	"regexp"

	"github.com/da-x/user-netns/internal/failure"
)

// Kind names an allow-list grammar.
type Kind int

const (
	KindInvalid Kind = iota
	// KindIdentifier is a namespace, network or bridge name: [0-9a-z-]+
	KindIdentifier
	// KindIPLiteral is an IPv4 address or CIDR block: [0-9./]+
	KindIPLiteral
)

// Longest interface name the kernel accepts (IFNAMSIZ minus the NUL).
const MaxInterfaceName = 15

var grammars = map[Kind]*regexp.Regexp{
	KindIdentifier: regexp.MustCompile(`^[0-9a-z-]+$`),
	KindIPLiteral:  regexp.MustCompile(`^[0-9./]+$`),
}

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindIPLiteral:
		return "ip-literal"
	default:
		return "invalid"
	}
}

func (k Kind) allowed() string {
	switch k {
	case KindIdentifier:
		return "[0-9a-z-]"
	case KindIPLiteral:
		return "[0-9./]"
	default:
		return "nothing"
	}
}

// Token is a string that matched its Kind's grammar when it was produced.
// The zero Token is invalid, so a raw string can only become a Token here.
type Token struct {
	value string
	kind  Kind
}

func (t Token) String() string { return t.value }
func (t Token) Kind() Kind      { return t.kind }

// Require fails unless t was produced by the validator for kind.
func (t Token) Require(kind Kind) error {
	if t.kind != kind || t.kind == KindInvalid {
		return failure.ValidationError.New("%q was not validated as %s", t.value, kind)
	}
	return nil
}

// Validate returns raw as a Token of the given kind if it matches the kind's
// grammar.
func Validate(kind Kind, raw string) (Token, error) {
	re, ok := grammars[kind]
	if !ok {
		return Token{}, failure.ValidationError.New("no grammar for token class %s", kind)
	}
	if !re.MatchString(raw) {
		return Token{}, failure.ValidationError.New("%q is not a valid %s (allowed characters: %s)", raw, kind, kind.allowed())
	}
	return Token{value: raw, kind: kind}, nil
}

func Identifier(raw string) (Token, error) { return Validate(KindIdentifier, raw) }

func IPLiteral(raw string) (Token, error) { return Validate(KindIPLiteral, raw) }

// Interface validates an existing link name such as eth0 or a veth end.
func Interface(raw string) (Token, error) {
	tok, err := Identifier(raw)
	if err != nil {
		return Token{}, err
	}
	if len(raw) > MaxInterfaceName {
		return Token{}, failure.ValidationError.New("interface name %q is longer than %d characters", raw, MaxInterfaceName)
	}
	return tok, nil
}

// InterfaceName joins identifier tokens with '-' and a fixed suffix into a
// link name, failing if the result would not fit the kernel's limit.
func InterfaceName(suffix string, parts ...Token) (Token, error) {
	name := ""
	for _, p := range parts {
		if err := p.Require(KindIdentifier); err != nil {
			return Token{}, err
		}
		name += p.value + "-"
	}
	name += suffix
	tok, err := Identifier(name)
	if err != nil {
		return Token{}, err
	}
	if len(name) > MaxInterfaceName {
		return Token{}, failure.ValidationError.New("interface name %q is longer than %d characters", name, MaxInterfaceName)
	}
	return tok, nil
}
