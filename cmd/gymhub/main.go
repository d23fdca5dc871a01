package main

import "github.com/nfrund/gymhub/cmd/gymhub/cmd"

func main() {
	cmd.Execute()
}
