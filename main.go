package main

import "github.com/smith-xyz/apk-dataset-generator/cmd"

func main() {
	cmd.Execute()
}
