package main

import "github.com/tradecore/creditledger/internal/cli"

func main() {
	cli.Execute()
}
