package main

import "github.com/lessslie/olimpo-checkin/cmd"

func main() {
	cmd.Execute()
}
