package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/minderhq/minder/internal/cli"
)

func main() {
	// Optional .env for MINDER_ROOT / MINDER_USER; absence is fine.
	_ = godotenv.Load()
	code := cli.Run(os.Args[1:])
	os.Exit(code)
}
