package main

import "carechat/cmd"

func main() {
	cmd.Execute()
}
