package main

import (
	"github.com/luma/esl/cmd"
)

func main() {
	cmd.Execute()
}
