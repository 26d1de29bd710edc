package main

import (
	"os"

	"go.withmatt.com/mailsweep/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
