package main

import "github.com/nfrund/homeplace/cmd/homeplace-cli/cmd"

func main() {
	cmd.Execute()
}
