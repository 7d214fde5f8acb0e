package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/llxisdsh/dict/ctl"
)

func newGenerateConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	generateConf := ctl.NewGenerateConfigCommand(stdin, stdout, stderr)
	confCmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Print the default configuration.",
		Long: `generate-config prints the default dict configuration to stdout
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateConf.Run(context.Background())
		},
	}

	return confCmd
}
