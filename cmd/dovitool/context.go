package main

import (
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/llehouerou/go-dovi/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) workers() int {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.Performance.Workers <= 0 {
		return runtime.NumCPU()
	}
	return cfg.Performance.Workers
}

func (c *commandContext) progressEnabled() bool {
	cfg, err := c.ensureConfig()
	if err != nil {
		return false
	}
	switch cfg.Performance.Progress {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTerminal(os.Stderr)
	}
}

// newProgressBar returns a bar writing to stderr, or a silent one when
// progress reporting is off. Callers Add unconditionally either way.
func (c *commandContext) newProgressBar(n int, description string) *progressbar.ProgressBar {
	if !c.progressEnabled() {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
