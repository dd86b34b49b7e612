package assembler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Reassembler consumes the ordered segment paths of a finished run.
type Reassembler interface {
	Reassemble(ctx context.Context, paths []string, output string) error
}

// ByteConcat joins segments byte for byte. MPEG-TS segments are
// self-delimiting, so the result plays as one stream.
type ByteConcat struct{}

func (ByteConcat) Reassemble(ctx context.Context, paths []string, output string) error {
	if len(paths) == 0 {
		return fmt.Errorf("nothing to reassemble into %s", output)
	}

	partPath := output + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", partPath, err)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(partPath)
			return err
		}
		if err := appendSegment(p, out); err != nil {
			out.Close()
			os.Remove(partPath)
			return err
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("close %s: %w", partPath, err)
	}

	// Only a complete file takes the final name.
	if err := os.Rename(partPath, output); err != nil {
		return fmt.Errorf("rename %s: %w", partPath, err)
	}
	return nil
}

func appendSegment(srcPath string, dst io.Writer) error {
	src, err := os.Open(srcPath)
	if err != nil {
		// If a segment is missing, the whole file is corrupt.
		return fmt.Errorf("missing segment file %s: %w", srcPath, err)
	}
	defer src.Close()

	// Stream the segment into the final file
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("append %s: %w", srcPath, err)
	}
	return nil
}

// ConcatList writes an ffmpeg concat-demuxer list beside output, e.g.
// `ffmpeg -f concat -safe 0 -i out.mp4.txt -c copy out.mp4`. It does not
// run the muxer.
type ConcatList struct{}

// ListPath is where the list for output is written.
func (ConcatList) ListPath(output string) string { return output + ".txt" }

func (c ConcatList) Reassemble(ctx context.Context, paths []string, output string) error {
	if len(paths) == 0 {
		return fmt.Errorf("nothing to reassemble into %s", output)
	}

	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		// Single quotes are escaped as '\'' inside quoted entries.
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	listPath := c.ListPath(output)
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// Noop disables reassembly.
type Noop struct{}

func (Noop) Reassemble(context.Context, []string, string) error { return nil }
