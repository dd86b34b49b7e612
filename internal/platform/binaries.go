package platform

import (
	"fmt"
	"os/exec"
)

// OptionalMuxerBinaries are external tools that can consume a concat list.
// segfetch never runs them; it only tells the user whether one is available.
var OptionalMuxerBinaries = []string{
	"ffmpeg",
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// FindMuxer returns the path of the first available muxer binary.
func FindMuxer() (string, error) {
	for _, bin := range OptionalMuxerBinaries {
		if path, err := lookPath(bin); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no muxer (%v) found in PATH", OptionalMuxerBinaries)
}

// MuxCommand is the command line that turns a concat list into output.
func MuxCommand(muxer, listPath, output string) string {
	return fmt.Sprintf("%s -f concat -safe 0 -i %q -c copy %q", muxer, listPath, output)
}
