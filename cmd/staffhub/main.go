package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "staffhub",
		Short: "StaffHub HR API",
		Long:  "Run the StaffHub HR API with its cache warming scheduler, or warm the cache once",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(warmCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
