package main

import (
	"contract-compliance-monitor/internal/cli"
)

func main() {
	cli.Execute()
}
