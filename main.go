package main

import "fleet-telemetry/internal/cli"

func main() {
	cli.Execute()
}
