package main

import "github.com/jfmyers9/syncfm/cmd"

func main() {
	cmd.Execute()
}
