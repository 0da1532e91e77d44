package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/skycoin/bootauth/pkg/cli"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Images are checked against the production signer registry unless -registry-file is given.
 * Without a COMMAND, commands are read from standard input.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		maxLength = max(maxLength, len(command))
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(s *session, args []string) int {
	if err := execute(s, args); err != nil {
		if errors.Is(err, ErrRejected) {
			writeErr("%s", err)
		} else {
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(s *session, in io.Reader) int {
	status := 0
	scanner := bufio.NewScanner(in)
	for fmt.Fprintf(s.out, "> "); scanner.Scan(); fmt.Fprintf(s.out, "> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return status
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		status = runCommand(s, args)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return status
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig()
	if err != nil {
		writeErr("Failed to load configuration: %s", err)
		return
	}
	flag.Usage = Usage
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()
	config.ApplyLogLevel()

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		if err := help(os.Stdout, args[1:]); err != nil {
			writeErr("%s", err)
			return
		}
		status = 0
		return
	}

	auth, err := config.Authenticator()
	if err != nil {
		writeErr("Error: %s", err)
		return
	}
	s := &session{config: config, auth: auth, out: os.Stdout}

	if len(args) > 0 {
		status = runCommand(s, args)
	} else {
		status = runInteractiveShell(s, os.Stdin)
	}
}
