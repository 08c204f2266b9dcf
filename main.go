package main

import "github.com/oystub/barbershop/cmd"

func main() {
	cmd.EntryPoint()
}
