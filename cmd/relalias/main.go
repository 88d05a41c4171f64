// cmd/relalias/main.go
//
// Entry point for the relalias CLI. Subcommands are declared on Options and
// dispatched by go-flags; each one loads the project under --project (or the
// working directory) before doing its work.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; RELALIAS_DEBUG is commonly set there.
	_ = godotenv.Load()

	opts := NewOptions(os.Stdout)
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "relalias"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return
		}
		die("%v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
