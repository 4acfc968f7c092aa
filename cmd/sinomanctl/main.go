// cmd/sinomanctl/main.go
package main

import "sinoman/internal/cli"

func main() {
	cli.Execute()
}
