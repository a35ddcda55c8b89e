package main

import "github.com/zinc-sig/pyjudge/cmd"

func main() {
	cmd.Execute()
}
