//go:build !(js && wasm)

// Command voxbuild voxelizes meshes and builds procedural voxel volumes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/voxelsplace/voxbuild/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := utils.Root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
