package cli

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// joinFlags combines multiple flag slices into one
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	return slices.Concat(flags...)
}
