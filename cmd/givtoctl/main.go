package main

import "givto/cmd/givtoctl/cmd"

func main() {
	cmd.Execute()
}
