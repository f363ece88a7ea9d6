package main

import "github.com/code-payments/post-minter/cmd/post-minter/cmd"

func main() {
	cmd.Execute()
}
