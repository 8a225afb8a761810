package main

import (
	"log"

	"ticket-maintenance/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
