package main

import (
	"os"

	eduversecmder "github.com/papercomputeco/eduverse/cmd/eduverse"
)

func main() {
	cmd := eduversecmder.NewEduverseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
