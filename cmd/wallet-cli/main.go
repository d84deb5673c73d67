package main

import "runewallet/cmd/wallet-cli/cmd"

func main() {
	cmd.Execute()
}
