package main

import "github.com/mvp-joe/javalens/internal/cli"

func main() {
	cli.Execute()
}
