package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

const (
	inputPlaceholder  = "{input}"
	outputPlaceholder = "{output}"
)

// commandTemplate is an external tool invocation with {input} and {output}
// placeholders, parsed once at construction
type commandTemplate struct {
	args []string
}

func parseCommandTemplate(command string) (commandTemplate, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return commandTemplate{}, fmt.Errorf("parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return commandTemplate{}, fmt.Errorf("command empty")
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, inputPlaceholder) || !strings.Contains(joined, outputPlaceholder) {
		return commandTemplate{}, fmt.Errorf("command %q must reference %s and %s", command, inputPlaceholder, outputPlaceholder)
	}
	return commandTemplate{args: args}, nil
}

// expand substitutes the placeholders per argument, so paths containing
// spaces stay a single argument
func (c commandTemplate) expand(input, output string) []string {
	replacer := strings.NewReplacer(inputPlaceholder, input, outputPlaceholder, output)
	expanded := make([]string, len(c.args))
	for i, arg := range c.args {
		expanded[i] = replacer.Replace(arg)
	}
	return expanded
}

// run executes the expanded command and returns combined stdout
func (c commandTemplate) run(ctx context.Context, input, output string) (string, error) {
	args := c.expand(input, output)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.String(), fmt.Errorf("%s failed: %w", args[0], err)
		}
		return stdout.String(), fmt.Errorf("%s failed: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}
