// Package main is the entry point of the ali123 service and operator CLI.
package main

import (
	"os"

	"github.com/ali123/ali123/cmd/ali123/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
