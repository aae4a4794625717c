// Command promoengine evaluates declarative promotions against shopping
// carts. See "promoengine --help".
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/promotions/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
