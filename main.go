package main

import "github.com/stackatlas/cfn-depgraph/cmd"

func main() {
	cmd.Execute()
}
