package probe

import _ "embed"

// Version is the release of the probe module.
//
//go:embed VERSION
var Version string
