package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/voxelsplace/voxbuild/api"
)

// RunInfo prints a one-line description of the volume in inPath to w.
func RunInfo(w io.Writer, inPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	info, err := api.Info(data)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	_, err = fmt.Fprintf(w, "%s: %s\n", inPath, info)
	return err
}
