package main

import "github.com/hitman711/parkinglot/internal/cli"

func main() {
	cli.Execute()
}
