package main

import (
	"fmt"
	"log"
)

func main() {
	fmt.Println("usage: tool")
	log.Println("done")
}
