package workspace

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ComputeHash fingerprints the workspace content: every writable, saved
// setting value and every edge as "fromType.port->toType.port". Node names,
// identities and geometry do not contribute, and neither does the order in
// which elements were added.
//
// The strings are sorted and each is length-prefixed before hashing.
func (w *Workspace) ComputeHash() [32]byte {
	w.mu.RLock()
	var parts []string
	for _, n := range w.nodes {
		for _, s := range n.Settings() {
			if s.ReadOnly || s.DontSave {
				continue
			}
			if v, ok := n.Setting(s.Name); ok {
				parts = append(parts, settingText(v))
			}
		}
	}
	for _, e := range w.edges {
		parts = append(parts, e.From.Node().Type+"."+e.From.Name+"->"+e.To.Node().Type+"."+e.To.Name)
	}
	w.mu.RUnlock()

	sort.Strings(parts)
	h := sha256.New()
	var length [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(length[:], uint64(len(p)))
		h.Write(length[:])
		h.Write([]byte(p))
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// settingText renders a setting value the way it would be typed by a user.
func settingText(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case !v.IsKnown():
		return "unknown"
	case v.Type() == cty.String:
		return v.AsString()
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}
