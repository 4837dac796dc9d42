package main

import "github.com/charleschow/squares-odds/internal/process"

func main() {
	process.Serve()
}
