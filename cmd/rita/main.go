package main

import "github.com/princespaghetti/rita/internal/cli"

func main() {
	cli.Execute()
}
