package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/minderhq/minder/internal/remind"
)

// consoleNotifier is the local stand-in for a chat transport: one digest per
// owner printed to stdout.
type consoleNotifier struct {
	format string // chat|plain
}

func (c consoleNotifier) Notify(ctx context.Context, ownerID string, d remind.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := d.RenderChat()
	if c.format == "plain" {
		body = d.RenderPlain()
	}
	_, err := fmt.Fprintf(os.Stdout, "-> %s\n%s\n\n", ownerID, body)
	return err
}
