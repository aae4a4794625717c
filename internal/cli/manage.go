package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promotions/internal/store"
)

// openStore opens the database named by --db, reporting failures through
// the formatter.
func openStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	return st, nil
}

// storeError maps a store error to an exit error. Missing ids and version
// conflicts are failures; everything else is a command error.
func storeError(formatter *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "promotion not found", err)
	case store.IsVersionConflict(err):
		_ = formatter.Error(ErrCodeVersion, err.Error(), nil)
		return WrapExitError(ExitFailure, "version conflict", err)
	default:
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "store error", err)
	}
}

// ManageOptions holds flags shared by the update commands.
type ManageOptions struct {
	*RootOptions
	ExpectVersion int
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSetActiveCommand(rootOpts, "activate", "Include a promotion in engine runs", true)
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSetActiveCommand(rootOpts, "deactivate", "Exclude a promotion from engine runs", false)
}

func newSetActiveCommand(rootOpts *RootOptions, use, short string, active bool) *cobra.Command {
	opts := &ManageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use + " <promotion-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], store.ChangeActive{Active: active})
		},
	}

	cmd.Flags().IntVar(&opts.ExpectVersion, "expect-version", 0, "fail unless the stored version matches (0 skips the check)")

	return cmd
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "rename <promotion-id> <name>",
		Short:         "Change the display name of a promotion",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], store.ChangeName{Name: args[1]})
		},
	}

	cmd.Flags().IntVar(&opts.ExpectVersion, "expect-version", 0, "fail unless the stored version matches (0 skips the check)")

	return cmd
}

func runUpdate(opts *ManageOptions, cmd *cobra.Command, id string, action store.UpdateAction) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	updated, err := st.UpdatePromotion(cmd.Context(), id, opts.ExpectVersion, action)
	if err != nil {
		return storeError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(updated)
	}
	fmt.Fprintln(formatter.Writer, summarize(updated))
	return nil
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <promotion-id>",
		Short:         "Remove a promotion from the database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return storeError(formatter, err)
			}

			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(formatter.Writer, "✓ Deleted %s\n", args[0])
			return nil
		},
	}
}
