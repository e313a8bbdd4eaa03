package main

import "github.com/idrcli/awsidr/cmd/awsidr/commands"

func main() {
	commands.Execute()
}
