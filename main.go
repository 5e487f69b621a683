package main

import "robocam/cmd"

func main() {
	cmd.Main()
}
