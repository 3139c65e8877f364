package constant

import (
	_ "embed"
)

const Name = "ikala"

//go:embed version
var Version string
