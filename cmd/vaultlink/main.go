// Command vaultlink is a small CLI driver for the vaultlink library: it
// connects to a companion-app server, prints a snapshot of the player
// and inventory views, or probes the local network for one over UDP
// autodiscovery.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/op/go-logging"

	vaultlink "github.com/ianremillard/vaultlink"
	"github.com/ianremillard/vaultlink/internal/command"
	"github.com/ianremillard/vaultlink/internal/config"
	"github.com/ianremillard/vaultlink/internal/discovery"
	"github.com/ianremillard/vaultlink/internal/graph"
	"github.com/ianremillard/vaultlink/internal/vlog"
	"github.com/ianremillard/vaultlink/views"
)

func usage() {
	fmt.Fprintf(os.Stderr, `vaultlink is a client for the companion-app wire protocol.

Usage:
  vaultlink watch --host HOST [--port PORT]      print the value graph as it updates
  vaultlink status --host HOST [--port PORT]     print one Player/Inventory snapshot and exit
  vaultlink command --host HOST --type N [args]  issue a command and print the result
  vaultlink discover [--port PORT] [--timeout D] probe the local network for servers

Global flags:
`)
	flag.PrintDefaults()
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "watch":
		err = runWatch(args)
	case "status":
		err = runStatus(args)
	case "command":
		err = runCommand(args)
	case "discover":
		err = runDiscover(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "vaultlink: unknown subcommand %q\n\n", sub)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vaultlink: %v\n", err)
		os.Exit(1)
	}
}

func connectFlags(fs *flag.FlagSet) (host *string, port *int, verbose *bool) {
	host = fs.String("host", "127.0.0.1", "companion-app server host")
	port = fs.Int("port", config.DefaultPort, "companion-app server TCP port")
	verbose = fs.Bool("v", false, "enable debug logging")
	return host, port, verbose
}

func setVerbose(v bool) {
	if v {
		vlog.SetLevel(logging.DEBUG)
	}
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	host, port, verbose := connectFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := vaultlink.Connect(ctx, *host, *port)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("connected to %s:%d (version=%s language=%s)\n", *host, *port, svc.Version(), svc.Language())

	cancel2 := svc.Subscribe(func(v *graph.Value) {
		fmt.Printf("update id=%d type=%s\n", v.ID, v.Type)
	})
	defer cancel2()

	<-ctx.Done()
	return svc.Close()
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	host, port, verbose := connectFlags(fs)
	wait := fs.Duration("wait", 2*time.Second, "how long to wait for an initial snapshot before reporting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)

	ctx, cancel := context.WithTimeout(context.Background(), *wait+5*time.Second)
	defer cancel()

	svc, err := vaultlink.Connect(ctx, *host, *port)
	if err != nil {
		return err
	}
	defer svc.Close()

	time.Sleep(*wait)

	snap := svc.Graph()
	player, perr := views.LoadPlayer(snap)
	inv, ierr := views.LoadInventory(snap)

	if perr != nil {
		fmt.Printf("player: %v\n", perr)
	} else {
		printJSON("player", player)
	}
	if ierr != nil {
		fmt.Printf("inventory: %v\n", ierr)
	} else {
		printJSON("inventory", inv)
	}
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	host, port, verbose := connectFlags(fs)
	reqType := fs.Int("type", -1, "RequestType value (0-14)")
	argsJSON := fs.String("args", "[]", "JSON array of command arguments")
	timeout := fs.Duration("timeout", 10*time.Second, "how long to wait for the COMMAND_RESULT")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)

	if *reqType < 0 || *reqType > int(command.ClearIdle) {
		return fmt.Errorf("--type must be in [0, %d]", int(command.ClearIdle))
	}
	var cmdArgs []any
	if err := json.Unmarshal([]byte(*argsJSON), &cmdArgs); err != nil {
		return fmt.Errorf("--args: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	svc, err := vaultlink.Connect(ctx, *host, *port)
	if err != nil {
		return err
	}
	defer svc.Close()

	callCtx, callCancel := context.WithTimeout(ctx, *timeout)
	defer callCancel()
	resp, err := svc.SendCommand(callCtx, uint8(*reqType), cmdArgs)
	if err != nil {
		return err
	}
	printJSON("result", resp)
	return nil
}

func runDiscover(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	port := fs.Int("port", config.DefaultDiscoveryPort, "UDP autodiscovery port")
	repeats := fs.Int("repeats", 5, "number of probe broadcasts to send")
	timeout := fs.Duration("timeout", 1*time.Second, "how long to collect replies")
	allowBusy := fs.Bool("allow-busy", false, "include servers that report busy")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+2*time.Second)
	defer cancel()

	replies, err := discovery.Probe(ctx, *port, *repeats, *timeout, *allowBusy)
	if err != nil {
		return err
	}
	if len(replies) == 0 {
		fmt.Println("no servers found")
		return nil
	}
	for _, r := range replies {
		busy := ""
		if r.IsBusy {
			busy = " (busy)"
		}
		fmt.Printf("%s\t%s%s\n", r.Addr, r.MachineType, busy)
	}
	return nil
}

func printJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: %v\n", label, err)
		return
	}
	fmt.Printf("%s:\n%s\n", label, data)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
