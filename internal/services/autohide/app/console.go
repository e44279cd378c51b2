package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/autohidehost/internal/services/autohide/commands"
	"github.com/louisbranch/autohidehost/internal/services/autohide/operator"
)

// ServeConsole reads one command per line from in and writes the replies to
// out. The console operator is the host, so every command is privileged.
func ServeConsole(ctx context.Context, in io.Reader, out io.Writer, exec operator.Executor) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines, _ := exec.Execute(ctx, commands.Host, line)
		for _, reply := range lines {
			if _, err := fmt.Fprintln(out, reply); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}
