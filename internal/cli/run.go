package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/promotions/internal/engine"
	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

// DefaultRunConcurrency bounds the carts evaluated at once.
const DefaultRunConcurrency = 4

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	PromotionID string
	Promotions  []string // promotion files used instead of the database
	MaxPasses   int
	MetricsAddr string
	Concurrency int

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// CartResult is the outcome of one cart.
type CartResult struct {
	Cart      string        `json:"cart"`
	Discounts []ir.Discount `json:"discounts"`
	Total     float64       `json:"total"`
	Items     []ir.Item     `json:"items"`
	Error     *CLIError     `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <cart.json>...",
		Short: "Apply promotions to carts",
		Long: `Apply the active promotions to one or more carts and print the
discounts they produce.

Promotions come from the database, or from files given with --promotions.
A cart argument of "-" reads a stream of JSON carts from stdin until EOF or
interrupt. With --metrics-addr the engine's Prometheus metrics are served
at /metrics while the command runs.

Example:
  promoengine run --db ./promotions.db cart.json
  promoengine run --promotions ./promotions cart1.json cart2.json --format json
  promoengine run --metrics-addr :9090 - < carts.ndjson`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCarts(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PromotionID, "promotion", "", "apply only this promotion id")
	cmd.Flags().StringArrayVar(&opts.Promotions, "promotions", nil, "promotion file or directory to use instead of the database (repeatable)")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", rootOpts.Config.MaxPasses, "safety cap on passes for promotions without times (env PROMO_MAX_PASSES)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", rootOpts.Config.MetricsAddr, "serve Prometheus metrics on this address (env PROMO_METRICS_ADDR)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", DefaultRunConcurrency, "carts evaluated in parallel")

	return cmd
}

func runCarts(opts *RunOptions, carts []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	finder, closeFinder, err := openFinder(opts, formatter)
	if err != nil {
		return err
	}
	defer closeFinder()

	cache := expression.NewCache()
	engOpts := []engine.EngineOption{
		engine.WithCache(cache),
		engine.WithMaxPasses(opts.MaxPasses),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := engine.NewMetrics(reg, cache)
		if err != nil {
			return WrapExitError(ExitCommandError, "registering metrics", err)
		}
		engOpts = append(engOpts, engine.WithMetrics(metrics))

		_, stop, err := serveMetrics(opts.MetricsAddr, reg)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("metrics listener: %v", err), nil)
			return WrapExitError(ExitCommandError, "metrics listener", err)
		}
		defer stop()
	}

	eng := engine.New(finder, engOpts...)

	var results []CartResult
	if len(carts) == 1 && carts[0] == "-" {
		results, err = runStream(ctx, eng, opts, cmd.InOrStdin(), formatter)
	} else {
		results, err = runFiles(ctx, eng, opts, carts)
	}
	if err != nil {
		return err
	}

	return outputRunResults(formatter, results)
}

// openFinder returns the promotion source for the run: compiled files when
// --promotions is given, the database otherwise.
func openFinder(opts *RunOptions, formatter *OutputFormatter) (engine.PromotionFinder, func(), error) {
	if len(opts.Promotions) > 0 {
		promotions, err := loadForCommand(formatter, opts.Promotions)
		if err != nil {
			return nil, nil, err
		}
		return engine.StaticPromotions(promotions), func() {}, nil
	}

	st, err := openStore(opts.RootOptions, formatter)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}, nil
}

// serveMetrics starts a /metrics endpoint for reg. It returns the bound
// address and a function that shuts the server down.
func serveMetrics(addr string, reg *prometheus.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// runFiles evaluates cart files in parallel. Results keep argument order.
func runFiles(ctx context.Context, eng *engine.Engine, opts *RunOptions, paths []string) ([]CartResult, error) {
	results := make([]CartResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultRunConcurrency
	}
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			facts, err := readFacts(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading cart", err)
			}
			results[i] = applyPromotions(gctx, eng, opts.PromotionID, path, facts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runStream evaluates JSON carts read from r one after another until EOF
// or cancellation.
func runStream(ctx context.Context, eng *engine.Engine, opts *RunOptions, r io.Reader, formatter *OutputFormatter) ([]CartResult, error) {
	dec := json.NewDecoder(r)
	results := []CartResult{}
	for n := 1; ctx.Err() == nil; n++ {
		var facts ir.Facts
		err := dec.Decode(&facts)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = formatter.Error(ErrCodeInvalidFacts, fmt.Sprintf("cart %d: %v", n, err), nil)
			return nil, WrapExitError(ExitCommandError, "decoding cart", err)
		}
		results = append(results, applyPromotions(ctx, eng, opts.PromotionID, fmt.Sprintf("stdin#%d", n), &facts))
	}
	return results, nil
}

// readFacts decodes a cart file.
func readFacts(path string) (*ir.Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var facts ir.Facts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &facts, nil
}

// applyPromotions runs the engine on one cart and captures the outcome.
func applyPromotions(ctx context.Context, eng *engine.Engine, promotionID, name string, facts *ir.Facts) CartResult {
	result := CartResult{Cart: name, Discounts: []ir.Discount{}}

	discounts, err := eng.Run(ctx, facts, promotionID)
	result.Items = facts.Items
	if err != nil {
		code := ErrCodeGeneric
		var rtErr *engine.RuntimeError
		if errors.As(err, &rtErr) {
			code = string(rtErr.Code)
		}
		result.Error = &CLIError{Code: code, Message: err.Error()}
		return result
	}

	result.Discounts = discounts
	for _, d := range discounts {
		result.Total += d.CentAmount
	}
	return result
}

// outputRunResults prints every cart outcome. A failed cart makes the
// command fail after all results are written.
func outputRunResults(formatter *OutputFormatter, results []CartResult) error {
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if formatter.Format == "json" {
		if err := json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: runStatus(failed),
			Data:   results,
		}); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			writeCartResult(formatter.Writer, r)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d cart(s) failed", failed))
	}
	return nil
}

func runStatus(failed int) string {
	if failed > 0 {
		return "error"
	}
	return "ok"
}

func writeCartResult(w io.Writer, r CartResult) {
	if r.Error != nil {
		fmt.Fprintf(w, "✗ %s\n  Error [%s]: %s\n\n", r.Cart, r.Error.Code, r.Error.Message)
		return
	}

	fmt.Fprintf(w, "✓ %s: %d discount(s), total %s\n", r.Cart, len(r.Discounts), formatAmount(r.Total))
	for _, d := range r.Discounts {
		fmt.Fprintf(w, "  %s\n", formatDiscount(d))
	}
	fmt.Fprintln(w)
}

// formatDiscount renders one discount for text output.
func formatDiscount(d ir.Discount) string {
	if d.SKU != "" {
		return fmt.Sprintf("%-20s %-13s sku=%-10s %s", d.PromotionID, d.Type, d.SKU, formatAmount(d.CentAmount))
	}
	return fmt.Sprintf("%-20s %-13s %-14s %s", d.PromotionID, d.Type, "", formatAmount(d.CentAmount))
}

// formatAmount prints an amount with the shortest exact decimal form, the
// same digits the JSON output carries.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
