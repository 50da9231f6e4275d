package pipeline

import (
	"log/slog"

	"github.com/gogpu/bake/gpu"
)

func logger() *slog.Logger {
	return gpu.Logger()
}
