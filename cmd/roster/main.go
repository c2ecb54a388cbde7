// Command roster keeps student records in a CSV file or SQLite database.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/roster/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
