package main

import "itercheck/cmd"

func main() {
	cmd.Execute()
}
