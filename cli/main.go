// Command eeprom is a small diagnostic tool over a file-backed store: it
// reports page states, and can format, write, and read single records
// against a backing file, mirroring the original cli/main.go's role as a
// scratch tool for poking at the storage layer by hand.
package main

import (
	"flag"
	"fmt"
	"os"

	emueeprom "emueeprom"
	filebackend "emueeprom/backend/file"
)

func main() {
	path := flag.String("file", "eeprom.bin", "backing file path")
	pageSize := flag.Uint("page-size", 1024, "bytes per page")
	mode := flag.String("mode", "fixed", "fixed or variable")
	cmd := flag.String("cmd", "status", "status | format | write | read")
	key := flag.Uint("key", 0, "record key")
	value := flag.Uint("value", 0, "fixed-mode value to write")
	payload := flag.String("payload", "", "variable-mode payload to write")
	flag.Parse()

	backend := filebackend.New(*path, uint32(*pageSize), false)
	defer backend.Close()

	opts := &emueeprom.Options{PageSize: uint32(*pageSize)}

	switch *mode {
	case "fixed":
		runFixed(backend, opts, *cmd, uint16(*key), uint16(*value))
	case "variable":
		runVar(backend, opts, *cmd, uint32(*key), *payload)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(1)
	}
}

func runFixed(backend emueeprom.Backend, opts *emueeprom.Options, cmd string, key, value uint16) {
	store := emueeprom.NewFixedStore(backend, opts)
	if err := store.Init(); err != nil {
		fatal(err)
	}

	switch cmd {
	case "status":
		printStatus(store)
	case "format":
		if err := store.Format(); err != nil {
			fatal(err)
		}
	case "write":
		if status := store.Write(key, value, false); status != emueeprom.FixedWriteOK {
			fatal(fmt.Errorf("write: %s", status))
		}
	case "read":
		v, status := store.Read(key)
		if status != emueeprom.FixedReadOK {
			fatal(fmt.Errorf("read: %s", status))
		}
		fmt.Println(v)
	default:
		fatal(fmt.Errorf("unknown cmd %q", cmd))
	}
}

func runVar(backend emueeprom.Backend, opts *emueeprom.Options, cmd string, key uint32, payload string) {
	opts.Mode = emueeprom.ModeVariable
	store := emueeprom.NewVarStore(backend, opts)
	if err := store.Init(); err != nil {
		fatal(err)
	}

	switch cmd {
	case "status":
		printStatus(store)
	case "format":
		if err := store.Format(); err != nil {
			fatal(err)
		}
	case "write":
		if status := store.Write(key, []byte(payload)); status != emueeprom.VarWriteOK {
			fatal(fmt.Errorf("write: %s", status))
		}
	case "read":
		buf := make([]byte, 4096)
		n, status := store.Read(key, buf)
		if status != emueeprom.VarReadOK {
			fatal(fmt.Errorf("read: %s", status))
		}
		fmt.Println(string(buf[:n]))
	default:
		fatal(fmt.Errorf("unknown cmd %q", cmd))
	}
}

type statusReporter interface {
	PageStatus(emueeprom.Page) emueeprom.PageState
}

func printStatus(s statusReporter) {
	fmt.Printf("A: %s\nB: %s\n", s.PageStatus(emueeprom.PageA), s.PageStatus(emueeprom.PageB))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
