package main

import "github.com/claude/liftlog/internal/cli"

func main() {
	cli.Execute()
}
