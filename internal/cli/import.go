package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promotions/internal/ir"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	SkipValidation bool
}

// ImportResult summarizes an import.
type ImportResult struct {
	Promotions []ImportedPromotion `json:"promotions"`
}

// ImportedPromotion is one stored record after import.
type ImportedPromotion struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Validate promotion files and store them",
		Long: `Validate promotion files and save them to the database.

New promotions are appended after existing ones, which makes them run last.
Re-importing an id keeps its position and bumps its version only when the
definition changed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipValidation, "skip-validation", false, "store promotions without validating them")

	return cmd
}

func runImport(opts *ImportOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	promotions, err := loadForCommand(formatter, paths)
	if err != nil {
		return err
	}

	if !opts.SkipValidation {
		if errs := validatePromotions(promotions); len(errs) > 0 {
			return outputValidationErrors(formatter, errs)
		}
	}

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	result := ImportResult{Promotions: make([]ImportedPromotion, 0, len(promotions))}
	for _, p := range promotions {
		saved, err := st.SavePromotion(cmd.Context(), p)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "import failed", err)
		}
		formatter.VerboseLog("Stored promotion %s (version %d)", saved.ID, saved.Version)
		result.Promotions = append(result.Promotions, ImportedPromotion{ID: saved.ID, Version: saved.Version})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d promotion(s) into %s\n", len(result.Promotions), opts.Database)
	return nil
}

// summarize renders one promotion as a list line.
func summarize(p ir.Promotion) string {
	state := "active"
	if !p.IsActive() {
		state = "inactive"
	}
	times := "-"
	if p.Times > 0 {
		times = fmt.Sprint(p.Times)
	}
	return fmt.Sprintf("%-24s v%-3d %-8s times=%-4s %s", p.ID, p.Version, state, times, p.Name)
}
