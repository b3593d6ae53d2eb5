package main

import (
	"os"

	"maintenance_audit/cmd/mtto-audit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
