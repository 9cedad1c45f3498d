package main

import (
	"flag"
	"fmt"
	"os"
)

// Config defines program configuration.
type Config struct {
	NoBIOS  bool // Emulate a machine without a PCI BIOS.
	Verbose bool // Log device startup and shutdown.
}

// parseArgs parses command line arguments as applicable.
//
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config

	flag.Usage = func() {
		fmt.Printf("%s [options]\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.BoolVar(&c.NoBIOS, "nobios", c.NoBIOS, "Emulate a machine without a PCI BIOS.")
	flag.BoolVar(&c.Verbose, "verbose", c.Verbose, "Log emulated device activity.")
	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	return &c
}
