package main

import "tune-fusion/cmd"

func main() {
	cmd.Execute()
}
