package main

import "github.com/silogen/playbook-stats/cmd"

func main() {
	cmd.Execute()
}
