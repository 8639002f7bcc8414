package main

import (
	"demodrop/cmd"
)

func main() {
	cmd.Execute()
}
