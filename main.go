package main

import "github.com/mahir-majid/tiger-dorm-security/cmd"

func main() {
	cmd.Execute()
}
