// Package main is the entry point for pricely.
package main

import (
	"github.com/donaldgifford/pricely/cmd/pricely/cmd"
)

func main() {
	cmd.Execute()
}
