package wsfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/portref"
	"github.com/zclconf/go-cty/cty"
)

// File is the decoded content of one or more workspace files.
type File struct {
	Nodes       []Node
	Connections []Connection
	Inputs      []Input
}

// Node declares one node.
type Node struct {
	Type     string
	Name     string
	Geometry node.Geometry
	Settings map[string]cty.Value
}

// Connection declares one edge.
type Connection struct {
	From portref.Ref
	To   portref.Ref
}

// Input presets a value on an input port.
type Input struct {
	Port  portref.Ref
	Value cty.Value
}

// fileRoot is used to decode all top-level blocks of a file.
type fileRoot struct {
	Nodes       []*nodeBlock       `hcl:"node,block"`
	Connections []*connectionBlock `hcl:"connect,block"`
	Inputs      []*inputBlock      `hcl:"input,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type nodeBlock struct {
	Type     string         `hcl:"type,label"`
	Name     string         `hcl:"name,label"`
	Position hcl.Expression `hcl:"position,optional"`
	Size     hcl.Expression `hcl:"size,optional"`
	Z        *int           `hcl:"z,optional"`
	Settings *settingsBlock `hcl:"settings,block"`
}

type settingsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type connectionBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type inputBlock struct {
	Port  string         `hcl:"port,label"`
	Value hcl.Expression `hcl:"value"`
}
