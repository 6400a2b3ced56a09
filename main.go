package main

import "github.com/papapumpkin/onto/cmd"

func main() {
	cmd.Execute()
}
