package main

import "github.com/yelpcamp/apiserver/cmd"

func main() {
	cmd.Execute()
}
