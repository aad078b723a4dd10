package main

import "github.com/atikulmunna/pulse/internal/cmd"

func main() {
	cmd.Execute()
}
