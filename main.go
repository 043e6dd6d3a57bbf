package main

import "github.com/WhiteFoxMax/dupemgr/cmd"

func main() {
	cmd.Execute()
}
