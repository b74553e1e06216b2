package main

import (
	"bufio"
	"log"
	"os"

	"github.com/dmitrijs2005/gophtodo/internal/devtoken"
)

func main() {

	if err := devtoken.Run(os.Args[1:], bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}

}
