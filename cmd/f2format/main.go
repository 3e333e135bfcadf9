package main

import "github.com/agentic-research/f2format/cmd"

func main() {
	cmd.Execute()
}
