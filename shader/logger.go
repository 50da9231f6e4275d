package shader

import (
	"log/slog"

	"github.com/gogpu/bake/gpu"
)

// logger returns the logger shared with the gpu package.
func logger() *slog.Logger {
	return gpu.Logger()
}
