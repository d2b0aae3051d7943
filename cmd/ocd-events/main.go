package main

import "github.com/pfrederiksen/ocd-events/internal/cli"

func main() {
	cli.Execute()
}
