package main

import (
	"os"

	"github.com/maxkimambo/taskflow/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
