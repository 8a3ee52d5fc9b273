package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type portInfo struct {
	Name        string `json:"name"`
	Direction   string `json:"direction"`
	Type        string `json:"type"`
	Mandatory   bool   `json:"mandatory,omitempty"`
	Description string `json:"description,omitempty"`
}

type settingInfo struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Default     json.RawMessage `json:"default,omitempty"`
	Description string          `json:"description,omitempty"`
	ReadOnly    bool            `json:"read_only,omitempty"`
}

type componentInfo struct {
	Name                   string        `json:"name"`
	Description            string        `json:"description,omitempty"`
	RequiresAllInputsFresh bool          `json:"requires_all_inputs_fresh,omitempty"`
	Ports                  []portInfo    `json:"ports"`
	Settings               []settingInfo `json:"settings,omitempty"`
}

// components describes every registered component type.
func (a *App) components() []componentInfo {
	var out []componentInfo
	for _, name := range a.registry.Names() {
		c, rc, err := a.registry.Instantiate(name)
		if err != nil {
			a.logger.Warn("Skipping component.", "name", name, "error", err)
			continue
		}
		info := componentInfo{Name: name, Description: rc.Description, RequiresAllInputsFresh: rc.RequiresAllInputsFresh}
		for _, p := range c.Ports() {
			info.Ports = append(info.Ports, portInfo{
				Name:        p.Name,
				Direction:   p.Direction.String(),
				Type:        typebridge.Name(p.Type),
				Mandatory:   p.Mandatory,
				Description: p.Description,
			})
		}
		if cfg, ok := c.(component.Configurable); ok {
			for _, s := range cfg.Settings() {
				si := settingInfo{Name: s.Name, Type: s.Type.FriendlyName(), Description: s.Description, ReadOnly: s.ReadOnly}
				if s.Default != cty.NilVal && s.Default.IsWhollyKnown() {
					if raw, err := ctyjson.Marshal(s.Default, s.Default.Type()); err == nil {
						si.Default = raw
					}
				}
				info.Settings = append(info.Settings, si)
			}
		}
		out = append(out, info)
	}
	return out
}

// discover prints the component catalogue.
func (a *App) discover() error {
	infos := a.components()
	if a.config.JSON {
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s\t%s\n", info.Name, info.Description)
		for _, p := range info.Ports {
			req := ""
			if p.Mandatory {
				req = " (required)"
			}
			fmt.Fprintf(&b, "  %-6s %s: %s%s\n", p.Direction, p.Name, p.Type, req)
		}
		for _, s := range info.Settings {
			fmt.Fprintf(&b, "  setting %s: %s", s.Name, s.Type)
			if len(s.Default) > 0 {
				fmt.Fprintf(&b, " = %s", s.Default)
			}
			b.WriteByte('\n')
		}
	}
	_, err := fmt.Fprint(a.outW, b.String())
	return err
}
