package main

import (
	"os"

	"github.com/harrison/greptail/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
