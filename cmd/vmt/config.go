package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/devices/fffe/vesa"
)

// Config defines program configuration.
type Config struct {
	BusWidth int       // Memory bus width in bits.
	Chips    int       // Number of memory chips on the card.
	Yes      bool      // Start the test without asking.
	MemoryMB int       // Video memory of the emulated adapter in MiB.
	Faults   faultList // Stuck bits injected into the emulated adapter.
}

// faultList collects -fault flags of the form lane:set:clear, where set
// and clear are hexadecimal bit masks.
type faultList []vesa.Fault

func (f *faultList) String() string {
	if f == nil {
		return ""
	}
	set := make([]string, len(*f))
	for i, v := range *f {
		set[i] = fmt.Sprintf("%d:%02x:%02x", v.Lane, v.Set, v.Clear)
	}
	return strings.Join(set, ",")
}

func (f *faultList) Set(value string) error {
	fields := strings.Split(value, ":")
	if len(fields) != 3 {
		return errors.Errorf("invalid fault %q; expected lane:set:clear", value)
	}

	lane, err := strconv.Atoi(fields[0])
	if err != nil || lane < 0 {
		return errors.Errorf("invalid fault lane %q", fields[0])
	}

	set, err := strconv.ParseUint(fields[1], 16, 8)
	if err != nil {
		return errors.Wrapf(err, "invalid fault mask %q", fields[1])
	}

	unset, err := strconv.ParseUint(fields[2], 16, 8)
	if err != nil {
		return errors.Wrapf(err, "invalid fault mask %q", fields[2])
	}

	*f = append(*f, vesa.Fault{Lane: lane, Set: byte(set), Clear: byte(unset)})
	return nil
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config
	c.MemoryMB = vesa.DefaultMemory >> 20

	flag.Usage = func() {
		fmt.Printf("%s [options] -bus <bits> -chips <count>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.IntVar(&c.BusWidth, "bus", c.BusWidth, "Memory bus width in bits (required).")
	flag.IntVar(&c.Chips, "chips", c.Chips, "Number of chips on the card (required).")
	flag.BoolVar(&c.Yes, "yes", c.Yes, "Start the test without waiting for confirmation.")
	flag.IntVar(&c.MemoryMB, "memory", c.MemoryMB, "Video memory of the emulated adapter in MiB.")
	flag.Var(&c.Faults, "fault", "Inject stuck bits into a byte lane of the emulated adapter: lane:set:clear (hex masks). Repeatable.")

	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if !isSet("bus") || !isSet("chips") {
		flag.Usage()
		os.Exit(1)
	}

	return &c
}

// isSet returns true if the named flag was given on the command line.
func isSet(name string) bool {
	var found bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
