package upload

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExecSink invokes an external upload helper as `helper endpoint file`.
// Exit code 0 means success; anything else is a failure with the combined
// output captured for diagnostics. The delivered filename is the item's
// logical name, which prepare guarantees matches the file's basename.
type ExecSink struct {
	Helper   string
	Endpoint string
}

// Upload runs the helper for one item.
func (s *ExecSink) Upload(ctx context.Context, item Item) error {
	cmd := exec.CommandContext(ctx, s.Helper, s.Endpoint, item.Path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("upload helper %s: %w (output: %s)", s.Helper, err, strings.TrimSpace(string(output)))
	}
	if out := strings.TrimSpace(string(output)); out != "" {
		log.Debug().Str("helper", s.Helper).Str("output", out).Msg("Upload helper output")
	}
	return nil
}
