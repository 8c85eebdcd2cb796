package main

import "github.com/kozaktomas/smartlock-gate/cmd"

func main() {
	cmd.Execute()
}
