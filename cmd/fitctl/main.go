package main

import (
	"os"

	"github.com/sandeepkv93/fittrack-backend/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
