package main

import (
	"github.com/vishwas-11/nodecall/internal/cli"
	"github.com/vishwas-11/nodecall/internal/logging"
)

func main() {
	logging.Init(true)
	cli.Execute()
}
