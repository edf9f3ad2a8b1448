package main

import "github.com/smazurov/camctl/cmd"

func main() {
	cmd.Execute()
}
