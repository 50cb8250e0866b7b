package main

import "depscout/internal/cli"

func main() {
	cli.Execute()
}
