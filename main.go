package main

import (
	"github.com/sloonz/ibak/cmd"
)

func main() {
	cmd.Execute()
}
