package service

import (
	"fmt"
	"log"
	"os"
)

func report(n int) string {
	fmt.Println("created", n)   // want `use logger.Log instead of fmt.Println`
	fmt.Printf("%d\n", n)       // want `use logger.Log instead of fmt.Printf`
	log.Printf("created %d", n) // want `use logger.Log instead of log.Printf`

	fmt.Fprintln(os.Stderr, n)

	return fmt.Sprintf("%d", n)
}
