package main

import "github.com/pders01/repolens/cmd"

func main() {
	cmd.Execute()
}
