package app

import (
	"io"

	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/modules/console"
	"github.com/specialistvlad/routegrid/modules/file"
	"github.com/specialistvlad/routegrid/modules/http_post"
	"github.com/specialistvlad/routegrid/modules/s3"
	"github.com/specialistvlad/routegrid/modules/socketio"
	"github.com/specialistvlad/routegrid/modules/websocket"
)

// coreModules is the definitive list of all sink modules compiled into the
// routegrid binary. The console sink prints to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&console.Module{Stdout: outW},
		&file.Module{},
		&http_post.Module{},
		&s3.Module{},
		&socketio.Module{},
		&websocket.Module{},
	}
}
