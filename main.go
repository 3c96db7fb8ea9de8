package main

import "rcaprobe/topocheck/cmd"

func main() {
	cmd.Execute()
}
