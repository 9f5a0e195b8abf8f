package main

import (
	"os"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
