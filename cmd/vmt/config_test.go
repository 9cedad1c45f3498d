package main

import (
	"reflect"
	"testing"

	"github.com/hexaflex/vmt/machine"
)

func TestFaultList(t *testing.T) {
	var f faultList

	for _, v := range []string{"1:80:00", "3:0:ff"} {
		if err := f.Set(v); err != nil {
			t.Fatal(err)
		}
	}

	want := faultList{
		{Lane: 1, Set: 0x80},
		{Lane: 3, Clear: 0xff},
	}

	if !reflect.DeepEqual(f, want) {
		t.Fatalf("fault list mismatch;\nwant %v\nhave %v", want, f)
	}

	if have := f.String(); have != "1:80:00,3:00:ff" {
		t.Fatalf("string mismatch; have %q", have)
	}

	for _, v := range []string{"", "1:80", "x:0:0", "-1:0:0", "0:100:0", "0:0:zz"} {
		if err := f.Set(v); err == nil {
			t.Errorf("accepted invalid fault %q", v)
		}
	}
}

func TestCheckArgs(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		ok     bool
	}{
		{"valid", Config{BusWidth: 32, Chips: 4, MemoryMB: 1}, true},
		{"bus", Config{BusWidth: 16, Chips: 4, MemoryMB: 1}, false},
		{"memory", Config{BusWidth: 32, Chips: 4, MemoryMB: 0}, false},
		{"lane", Config{BusWidth: 32, Chips: 4, MemoryMB: 1, Faults: faultList{{Lane: 4}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewApp(&tt.config).checkArgs()
			if (err == nil) != tt.ok {
				t.Fatalf("checkArgs mismatch; want ok=%v, have %v", tt.ok, err)
			}
		})
	}
}

func TestAppRun(t *testing.T) {
	config := Config{
		BusWidth: 32,
		Chips:    4,
		Yes:      true,
		MemoryMB: 1,
		Faults:   faultList{{Lane: 2, Clear: 0x04}},
	}

	app := NewApp(&config)
	if err := app.Run(); err != nil {
		t.Fatal(err)
	}

	if id, _ := app.adapter.Mode(); id != 3 {
		t.Fatalf("text mode not restored; have %#x", id)
	}

	if u := app.machine.Usage(); u != (machine.Usage{}) {
		t.Fatalf("leaked resources: %+v", u)
	}
}
