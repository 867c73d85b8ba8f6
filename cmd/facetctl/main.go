package main

import "facetkit/internal/cli"

func main() {
	cli.Execute()
}
