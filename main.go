package main

import "github.com/nextharvest/agribot/cmd"

func main() {
	cmd.Execute()
}
