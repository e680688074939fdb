// Package apply sets the desktop background by running configured commands.
package apply

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"

	"weather-wallpaper/internal/engine"
)

// ErrMissingImage is returned when the image is gone by the time it is applied.
var ErrMissingImage = errors.New("wallpaper file not found")

// Placeholders substituted in each argument of a command template.
const (
	PathPlaceholder = "{path}"
	URIPlaceholder  = "{uri}"
)

// Runner executes one command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command and includes its combined output in errors.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

type command []string

// Applier runs every command template for a path.
type Applier struct {
	commands []command
	run      Runner
	exists   engine.FileExists
}

// New parses the templates up front so a bad template fails at startup.
func New(templates []string, run Runner, exists engine.FileExists) (*Applier, error) {
	if run == nil {
		run = ExecRunner
	}
	if exists == nil {
		exists = engine.OSFileExists
	}
	a := &Applier{run: run, exists: exists}
	for _, tpl := range templates {
		args, err := shellwords.Parse(tpl)
		if err != nil {
			return nil, fmt.Errorf("parse apply command %q: %w", tpl, err)
		}
		if len(args) == 0 {
			continue
		}
		a.commands = append(a.commands, args)
	}
	if len(a.commands) == 0 {
		return nil, errors.New("no apply commands configured")
	}
	return a, nil
}

// Apply runs all commands even if some fail; failures are joined.
func (a *Applier) Apply(ctx context.Context, path string) error {
	if !a.exists(path) {
		return fmt.Errorf("%w: %s", ErrMissingImage, path)
	}
	uri := "file://" + path

	var errs []error
	for _, c := range a.commands {
		args := c.expand(path, uri)
		if err := a.run(ctx, args[0], args[1:]...); err != nil {
			errs = append(errs, err)
			continue
		}
		log.Debug().Strs("cmd", args).Msg("apply command ok")
	}
	return errors.Join(errs...)
}

func (c command) expand(path, uri string) []string {
	r := strings.NewReplacer(URIPlaceholder, uri, PathPlaceholder, path)
	out := make([]string, len(c))
	for i, arg := range c {
		out[i] = r.Replace(arg)
	}
	return out
}
