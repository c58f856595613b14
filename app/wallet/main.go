package main

import "github.com/ardanlabs/skuchain/app/wallet/cmd"

func main() {
	cmd.Execute()
}
