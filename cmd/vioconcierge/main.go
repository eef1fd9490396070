package main

import "github.com/caniken03/vioconcierge/adapter/cli"

func main() {
	cli.Execute()
}
