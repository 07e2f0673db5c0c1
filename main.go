package main

import "github.com/rotblauer/aistraj/cmd"

func main() {
	cmd.Execute()
}
