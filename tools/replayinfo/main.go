package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"traffic-server/internal/infrastructure/storage"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "show":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo show <file.tsrp>")
			return
		}
		if err := show(os.Args[2], false); err != nil {
			fmt.Printf("Cannot read replay: %v\n", err)
			os.Exit(1)
		}
	case "toggles":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo toggles <file.tsrp>")
			return
		}
		if err := show(os.Args[2], true); err != nil {
			fmt.Printf("Cannot read replay: %v\n", err)
			os.Exit(1)
		}
	case "time":
		if len(os.Args) < 3 {
			fmt.Println("Usage: replayinfo time <unix_timestamp>")
			return
		}
		ts, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Invalid timestamp: %v\n", err)
			return
		}
		fmt.Println(time.Unix(ts, 0).UTC().Format(time.RFC3339))
	default:
		printHelp()
	}
}

func show(path string, withToggles bool) error {
	s, err := storage.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("seed:      %d\n", s.Seed)
	fmt.Printf("grid:      %dx%d\n", s.Rows, s.Cols)
	fmt.Printf("vehicles:  %d\n", s.Vehicles)
	fmt.Printf("recorded:  %s\n", time.Unix(s.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Printf("ticks:     %d\n", s.LastTick+1)
	fmt.Printf("toggles:   %d\n", len(s.Toggles))

	if withToggles {
		for _, t := range s.Toggles {
			op := "remove"
			if t.Add {
				op = "add"
			}
			fmt.Printf("  tick %6d  %-6s %s\n", t.Tick, op, t.At)
		}
	}
	fmt.Printf("re-run:    server -replay %s\n", path)
	return nil
}

func printHelp() {
	fmt.Println(`Replay info - inspect recorded traffic sessions
Commands:
  show <file>       - header of a replay file
  toggles <file>    - header plus every obstacle toggle
  time <timestamp>  - format a Unix timestamp as RFC 3339`)
}
