package main

import "shelfplayer/cmd"

func main() {
	cmd.Execute()
}
