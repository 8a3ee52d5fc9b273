package app

import (
	"io"

	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/modules/bignumber"
	"github.com/vk/flowgrid/modules/caesar"
	"github.com/vk/flowgrid/modules/constant"
	"github.com/vk/flowgrid/modules/env_vars"
	"github.com/vk/flowgrid/modules/gate"
	"github.com/vk/flowgrid/modules/hash"
	"github.com/vk/flowgrid/modules/http_client"
	"github.com/vk/flowgrid/modules/integer"
	"github.com/vk/flowgrid/modules/print"
	"github.com/vk/flowgrid/modules/random"
	"github.com/vk/flowgrid/modules/s3"
	"github.com/vk/flowgrid/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the flowgrid binary. Printing components write to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&constant.Module{},
		&integer.Module{},
		&bignumber.Module{},
		&caesar.Module{},
		&hash.Module{},
		&random.Module{},
		&gate.Module{},
		&print.Module{Out: outW},
		&socketio.Module{},
		&env_vars.Module{},
		&http_client.Module{},
		&s3.Module{},
	}
}
