package main

import "property-market-backend/cmd"

func main() {
	cmd.Run()
}
