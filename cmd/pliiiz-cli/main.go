package main

import "github.com/pliiiz/pliiiz/cmd/pliiiz-cli/cmd"

func main() {
	cmd.Execute()
}
