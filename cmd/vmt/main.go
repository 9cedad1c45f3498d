// Command vmt tests the memory chips of a video adapter.
package main

import "log"

func main() {
	log.SetFlags(0)

	err := NewApp(parseArgs()).Run()
	if err != nil {
		log.Fatal("error: ", err)
	}
}
