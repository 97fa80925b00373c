package main

import (
	"github.com/dicearena/dicearena/internal/cli"
)

func main() {
	cli.Execute()
}
