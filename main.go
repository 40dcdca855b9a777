package main

import (
	"github.com/ornithopter83/selftrack/cmd"
	"github.com/ornithopter83/selftrack/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
