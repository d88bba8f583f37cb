package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"docvault/internal/cli"
)

func main() {
	if code := cli.Execute(cli.NewRootCommand()); code != 0 {
		os.Exit(code)
	}
}
