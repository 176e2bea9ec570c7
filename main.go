// ./main.go
package main

import (
	"github.com/pagesnap/pagesnap-cli/cmd"
)

// main is the entry point for the PageSnap CLI application.
func main() {
	cmd.Execute()
}
