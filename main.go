// Package main is the entry point for the debugir CLI.
package main

import "debugir.dev/pkg/debugir/cmd"

func main() {
	cmd.Execute()
}
