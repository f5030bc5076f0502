package main

import (
	"github.com/nmsim/phospec/cmd"
)

func main() {
	cmd.Execute()
}
