package main

import (
	"context"
	"fmt"
	"os"

	"save-the-fridge/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment may already be set
	_ = godotenv.Load()

	if err := cli.Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
