package main

import (
	"os"

	"github.com/patrickjuchli/minicouch/internal/command"
)

func main() {
	os.Exit(command.Main(os.Args))
}
