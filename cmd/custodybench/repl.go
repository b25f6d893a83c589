package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/dtn-agent/custodytable/pkg/rhhash"
)

type repl struct {
	table    *rhhash.Table
	capacity int
	rng      *rand.Rand
	liner    *liner.State
	out      io.Writer
}

func runREPL(out, errOut *os.File, size int, seed int64) int {
	table, err := rhhash.New(size)
	if err != nil {
		fmt.Fprintln(errOut, "error: creating table:", err)

		return 1
	}
	defer table.Close()

	r := &repl{
		table:    table,
		capacity: size,
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		out:      out,
	}

	return r.run()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".custodybench_history")
}

func (r *repl) run() int {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(r.out, "custodybench - rhhash CLI (capacity=%d)\n", r.capacity)
	fmt.Fprintln(r.out, "Type 'help' for available commands.")
	fmt.Fprintln(r.out)

	for {
		line, err := r.liner.Prompt("custodybench> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out, "\nBye!")

				break
			}

			fmt.Fprintln(r.out, "error reading input:", err)

			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if !r.dispatch(cmd, args) {
			break
		}
	}

	r.saveHistory()

	return 0
}

// dispatch runs one command and reports whether the REPL should keep
// going.
func (r *repl) dispatch(cmd string, args []string) bool {
	switch cmd {
	case "exit", "quit", "q":
		fmt.Fprintln(r.out, "Bye!")

		return false
	case "help", "?":
		r.printHelp()
	case "add":
		r.cmdAdd(args, false)
	case "add!":
		r.cmdAdd(args, true)
	case "rm", "remove":
		r.cmdRemove(args)
	case "peek":
		r.cmdPeek()
	case "count":
		r.cmdCount()
	case "avail":
		r.cmdAvailable()
	case "bench":
		r.cmdBench(args)
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return true
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) completer(line string) []string {
	commands := []string{
		"add", "add!", "rm", "remove", "peek", "count", "avail",
		"bench", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  add <cid> <sid> [retx]   Insert a bundle (fails on duplicate CID)")
	fmt.Fprintln(r.out, "  add! <cid> <sid> [retx]  Insert or overwrite a bundle")
	fmt.Fprintln(r.out, "  rm <cid>                 Remove a bundle by CID")
	fmt.Fprintln(r.out, "  peek                     Show the oldest active bundle")
	fmt.Fprintln(r.out, "  count                    Show the number of active bundles")
	fmt.Fprintln(r.out, "  avail                    Report whether the table has room")
	fmt.Fprintln(r.out, "  bench <n>                Insert n random bundles and report throughput")
	fmt.Fprintln(r.out, "  help                     Show this help")
	fmt.Fprintln(r.out, "  exit / quit / q          Exit")
}

func (r *repl) cmdAdd(args []string, overwrite bool) {
	cmdName := "add"
	if overwrite {
		cmdName = "add!"
	}

	if len(args) < 2 {
		fmt.Fprintf(r.out, "Usage: %s <cid> <sid> [retx]\n", cmdName)

		return
	}

	cid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(r.out, "Error parsing cid: %v\n", err)

		return
	}

	sid, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(r.out, "Error parsing sid: %v\n", err)

		return
	}

	var retx uint64

	if len(args) >= 3 {
		retx, err = strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Fprintf(r.out, "Error parsing retx: %v\n", err)

			return
		}
	}

	err = r.table.Add(rhhash.Bundle{CID: cid, SID: sid, RetxTime: retx}, overwrite)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)

		return
	}

	fmt.Fprintf(r.out, "OK: added cid=%d sid=%d\n", cid, sid)
}

func (r *repl) cmdRemove(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(r.out, "Usage: rm <cid>")

		return
	}

	cid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(r.out, "Error parsing cid: %v\n", err)

		return
	}

	bundle, err := r.table.Remove(cid)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)

		return
	}

	fmt.Fprintf(r.out, "OK: removed cid=%d sid=%d retx=%d\n", bundle.CID, bundle.SID, bundle.RetxTime)
}

func (r *repl) cmdPeek() {
	bundle, err := r.table.Peek()
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)

		return
	}

	fmt.Fprintf(r.out, "cid=%d sid=%d retx=%d\n", bundle.CID, bundle.SID, bundle.RetxTime)
}

func (r *repl) cmdCount() {
	fmt.Fprintf(r.out, "Active entries: %d\n", r.table.Count())
}

func (r *repl) cmdAvailable() {
	err := r.table.Available(0)
	if err != nil {
		fmt.Fprintf(r.out, "%v\n", err)

		return
	}

	fmt.Fprintln(r.out, "OK: room for at least one more entry")
}

func (r *repl) cmdBench(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(r.out, "Usage: bench <n>")

		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		fmt.Fprintln(r.out, "Error: n must be a positive integer")

		return
	}

	start := time.Now()

	var added, full int

	for i := 0; i < n; i++ {
		cid := r.rng.Uint64()
		sid := r.rng.Uint64() | 1

		if err := r.table.Add(rhhash.Bundle{CID: cid, SID: sid}, true); err != nil {
			full++

			continue
		}

		added++
	}

	elapsed := time.Since(start)
	rate := float64(n) / elapsed.Seconds()

	fmt.Fprintf(r.out, "OK: %d ops in %v (%.0f ops/sec), added=%d table_full=%d\n",
		n, elapsed.Round(time.Millisecond), rate, added, full)
}
