package main

import "finanzas/internal/cli"

var version = "dev"

func main() {
	cli.Main(version)
}
