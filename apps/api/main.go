package main

import (
	"flag"
	"log"
)

func main() {
	di := flag.String("di", "manual", "how dependencies are wired: manual | dig")
	flag.Parse()

	switch *di {
	case "manual":
		startManual()
	case "dig":
		startWithDig()
	default:
		log.Fatalf("unknown -di value %q", *di)
	}
}
