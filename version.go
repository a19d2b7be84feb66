package simdb

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionFile string

// Version is the current version of the simulator, reported by `simdb -version`.
var Version = strings.TrimSpace(versionFile)
