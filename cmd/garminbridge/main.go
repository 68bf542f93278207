package main

import "github.com/swimforge/garminbridge/cmd/garminbridge/cmd"

func main() {
	cmd.Execute()
}
