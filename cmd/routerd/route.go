package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/routecore/router/internal/grouping"
	"github.com/routecore/router/internal/logging"
	"github.com/routecore/router/internal/routing"
)

// runRoute starts a REPL that exercises a single bindings table
// in-process, for manually poking at the dispatch protocol without a
// real post office or cluster.
func runRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	address := fs.String("address", "orders", "Address the demo table serves")
	mode := fs.String("mode", "onDemand", "Initial load-balancing mode (off, strict, onDemand, offWithRedistribution)")
	grouped := fs.Bool("grouping", false, "Enable the in-memory grouping handler")

	fs.Usage = func() {
		fmt.Println(`Usage: routerd route [options]

Start an interactive session against an in-memory bindings table.

Commands:
  add <uniqueName> <routingName>           add a local binding
  add-remote <uniqueName> <routingName> <remoteID> <mode>
                                            add a remote-queue binding
  remove <uniqueName>                      remove a binding
  route <address> [groupID]                route one message
  bindings                                  print the current table
  quit                                      exit

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: logging.LevelWarn, Format: logging.FormatText})

	var opts []routing.Option
	opts = append(opts, routing.WithLoadBalancingMode(routing.ParseLoadBalancingMode(*mode)))
	opts = append(opts, routing.WithLogger(logger))
	if *grouped {
		opts = append(opts, routing.WithGroupingHandler(grouping.NewInMemoryHandler(), 0))
	}

	tbl := routing.NewTable(*address, opts...)
	bindings := make(map[string]*consoleBinding)
	var nextID int64 = 1

	fmt.Printf("routing demo: address=%q mode=%s grouping=%v\n", *address, tbl.Mode(), *grouped)
	fmt.Println("type 'help' for commands, 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "quit", "exit":
			return

		case "help":
			fs.Usage()

		case "add":
			if len(fields) != 3 {
				fmt.Println("usage: add <uniqueName> <routingName>")
				continue
			}
			b := newConsoleBinding(nextID, fields[1], fields[2])
			nextID++
			if err := tbl.Add(b); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			bindings[b.uniqueName] = b
			fmt.Printf("added %s (id=%d)\n", b.uniqueName, b.id)

		case "add-remote":
			if len(fields) != 5 {
				fmt.Println("usage: add-remote <uniqueName> <routingName> <remoteID> <mode>")
				continue
			}
			remoteID, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				fmt.Printf("error: invalid remote id: %v\n", err)
				continue
			}
			b := newConsoleBinding(nextID, fields[1], fields[2]).asRemoteQueue(remoteID, routing.ParseLoadBalancingMode(fields[4]))
			nextID++
			if err := tbl.Add(b); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			bindings[b.uniqueName] = b
			fmt.Printf("added remote binding %s (id=%d, remoteQueueId=%d)\n", b.uniqueName, b.id, remoteID)

		case "remove":
			if len(fields) != 2 {
				fmt.Println("usage: remove <uniqueName>")
				continue
			}
			if _, ok := tbl.RemoveByUniqueName(fields[1]); !ok {
				fmt.Printf("no such binding: %s\n", fields[1])
				continue
			}
			delete(bindings, fields[1])
			fmt.Printf("removed %s\n", fields[1])

		case "bindings":
			fmt.Println(tbl.DebugBindings())

		case "route":
			if len(fields) < 2 {
				fmt.Println("usage: route <address> [groupID]")
				continue
			}
			msg := routing.NewMessage(fields[1])
			if len(fields) > 2 {
				msg.GroupID = fields[2]
			}
			rctx := routing.NewDefaultRoutingContext()
			if err := tbl.Route(context.Background(), msg, rctx); err != nil {
				fmt.Printf("routing error: %v\n", err)
				continue
			}
			fmt.Printf("routed %q (targets=%d)\n", msg.Address, len(rctx.Targets()))

		default:
			fmt.Printf("unknown command: %s (type 'help')\n", fields[0])
		}
	}
}
