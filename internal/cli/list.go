package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promotions/internal/ir"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	All bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored promotions in evaluation order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include inactive promotions")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	var promotions []ir.Promotion
	if opts.All {
		promotions, err = st.List(cmd.Context())
	} else {
		promotions, err = st.Find(cmd.Context(), ir.PromotionFilter{})
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(promotions)
	}

	if len(promotions) == 0 {
		fmt.Fprintln(formatter.Writer, "No promotions")
		return nil
	}
	for _, p := range promotions {
		fmt.Fprintln(formatter.Writer, summarize(p))
	}
	return nil
}
