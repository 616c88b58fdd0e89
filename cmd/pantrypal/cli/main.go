package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd, e := rootCmd()
	err := cmd.Execute()
	if closeErr := e.close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
