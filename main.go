package main

import "github.com/nextlevelbuilder/crew/cmd"

func main() {
	cmd.Execute()
}
