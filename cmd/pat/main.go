package main

import (
	"github.com/ACascarino/pat/cmd/pat/cmd"
)

func main() {
	cmd.Execute()
}
