package main

import "github.com/arya-analytics/orbits/cmd"

func main() {
	cmd.Execute()
}
