// Command migrate is the CLI entry point for the schema migration engine.
package main

import "github.com/flowmigrate/flowmigrate/internal/cli"

func main() {
	cli.Execute()
}
