package main

import "github.com/agentic-research/brightline/cmd"

func main() {
	cmd.Execute()
}
