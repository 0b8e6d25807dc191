package main

import (
	"path/filepath"
	"strings"
)

// defaultOutputPath derives an output name from the input, swapping
// the extension for suffix and honoring the configured gzip default.
func defaultOutputPath(input, suffix string, gzipped bool) string {
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	out := stem + suffix
	if gzipped {
		out += ".gz"
	}
	return out
}
