package portref

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single node or member name.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Ref addresses a port or a setting of a named node.
type Ref struct {
	Node   string
	Member string
}

// String serializes the Ref into its canonical form.
func (r Ref) String() string {
	return r.Node + "." + r.Member
}

// ValidName reports whether name can be used as a reference segment.
func ValidName(name string) bool {
	return segmentRegex.MatchString(name) && name != "-"
}

// Parse creates a Ref from its canonical string representation.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("reference cannot be empty")
	}
	nodeName, member, ok := strings.Cut(raw, ".")
	if !ok {
		return Ref{}, fmt.Errorf("reference %q must have the form node.member", raw)
	}
	for _, segment := range []string{nodeName, member} {
		if !ValidName(segment) {
			return Ref{}, fmt.Errorf("invalid segment %q in reference %q", segment, raw)
		}
	}
	return Ref{Node: nodeName, Member: member}, nil
}

// ParseAssignment splits "node.member=value". The value is returned
// verbatim and may be empty.
func ParseAssignment(raw string) (Ref, string, error) {
	lhs, value, ok := strings.Cut(raw, "=")
	if !ok {
		return Ref{}, "", fmt.Errorf("assignment %q must have the form node.member=value", raw)
	}
	ref, err := Parse(strings.TrimSpace(lhs))
	if err != nil {
		return Ref{}, "", err
	}
	return ref, value, nil
}
