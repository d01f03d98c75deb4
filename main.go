package main

import (
	"fmt"
	"os"

	"carprice/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "carprice: %v\n", err)
		os.Exit(1)
	}
}
