package main

import (
	"catalogmatch/cmd/catalog-cli/commands"
	"catalogmatch/internal/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
