package main

import "bookfetch/cmd"

func main() {
	cmd.Execute()
}
