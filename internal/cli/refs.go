package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/go-cellflow/internal/config"
	"github.com/askiada/go-cellflow/pkg/sheet"
)

func newRefsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <sheet-file>",
		Short: "Print the cells referenced by every cell and the reference graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printReferences(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], root)
		},
	}
}

func printReferences(out, errOut io.Writer, path string, opts *rootOptions) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(errOut, opts, cfg)
	if err != nil {
		return err
	}

	sh, err := newSheet(cfg, sheet.WithLogger(logger))
	if err != nil {
		return err
	}
	defer sh.Close()

	for _, id := range sh.IDs() {
		_, err = fmt.Fprintf(out, "%s: %s\n", id, strings.Join(sh.Precedents(id), " "))
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(out)
	if err != nil {
		return err
	}

	return sh.WriteReferences(out)
}
