package main

import (
	"github.com/luma/lodestone/cmd"
)

func main() {
	cmd.Execute()
}
