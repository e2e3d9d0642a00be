package main

import "github.com/codescan-sec/codescan/cmd"

func main() {
	cmd.Execute()
}
