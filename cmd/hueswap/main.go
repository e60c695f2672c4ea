package main

import "github.com/MeKo-Tech/hueswap/internal/cmd"

func main() {
	cmd.Execute()
}
