package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/llxisdsh/dict"
)

// GenerateConfigCommand represents a command for printing a default config.
type GenerateConfigCommand struct {
	*CmdIO
}

// NewGenerateConfigCommand returns a new instance of GenerateConfigCommand.
func NewGenerateConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *GenerateConfigCommand {
	return &GenerateConfigCommand{
		CmdIO: NewCmdIO(stdin, stdout, stderr),
	}
}

// Run prints out the default config.
func (cmd *GenerateConfigCommand) Run(_ context.Context) error {
	conf := dict.NewConfig()
	ret, err := toml.Marshal(*conf)
	if err != nil {
		return errors.Wrap(err, "marshalling default config")
	}
	fmt.Fprintf(cmd.Stdout, "%s\n", ret)
	return nil
}
