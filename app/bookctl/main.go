package main

import "github.com/yoockh/bookbot/app/bookctl/cmd"

func main() {
	cmd.Execute()
}
