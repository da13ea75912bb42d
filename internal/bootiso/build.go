package bootiso

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/output"
)

// Build normalizes and validates the request, writes its boot config, and
// runs genisoimage over the source tree. It returns the path of the
// finished image and its size in bytes.
func Build(ctx context.Context, r *Request) (string, int64, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return "", 0, config.Invalidf("invalid boot ISO request: %s", err)
	}

	bin, cat, err := r.WriteBootConfig()
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(r.Output, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory %s: %w", r.Output, err)
	}

	target := filepath.Join(r.Output, r.Filename)
	args := []string{
		"-quiet", "-J", "-T",
		"-o", target,
		"-b", bin,
		"-c", cat,
		"-no-emul-boot",
		"-boot-load-size", "4",
		"-boot-info-table",
		"-R",
		"-m", "TRANS.TBL",
		"-graft-points", r.Source,
	}

	log.Printf("Building boot ISO %s from %s", target, r.Source)
	cmd := exec.CommandContext(ctx, "genisoimage", args...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		return "", 0, fmt.Errorf("failed to build boot ISO %s: %w\nOutput: %s", target, err, string(combined))
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", 0, fmt.Errorf("boot ISO missing after build: %w", err)
	}

	log.Printf("Built %s %s", target, output.HumanSize(info.Size()))
	return target, info.Size(), nil
}
