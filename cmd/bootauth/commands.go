package main

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/skycoin/bootauth/pkg/bootloader"
	"github.com/skycoin/bootauth/pkg/cli"
	"github.com/skycoin/bootauth/pkg/flash"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRejected        = errors.New("firmware rejected")
)

type Argument struct {
	name string
	help string
}

// session is the state shared by commands run from one invocation or shell.
type session struct {
	config *cli.Config
	auth   *bootloader.Authenticator
	out    io.Writer
}

type Handler func(s *session, args map[string]string) error

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

// image opens the IMAGE argument, or the configured image if the argument was omitted.
func (s *session) image(args map[string]string) (*flash.Image, error) {
	if filename, ok := args["IMAGE"]; ok {
		return s.config.OpenImage(filename)
	}
	img, err := s.config.Image()
	if errors.Is(err, cli.ErrNoImageSpecified) {
		return nil, fmt.Errorf("%w: provide IMAGE or -image", ErrCommandLineArgs)
	}
	return img, err
}

func (s *session) printFingerprint(hash bootloader.ContentHash) {
	for _, line := range bootloader.Fingerprint(hash) {
		fmt.Fprintf(s.out, "    %s\n", line)
	}
}

// help prints the usage of the command named in args, or lists every command if args is empty.
func help(w io.Writer, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: help takes at most one COMMAND", ErrCommandLineArgs)
	}
	if len(args) == 0 {
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Available COMMANDs: %s, help, exit\n", strings.Join(names, ", "))
		return nil
	}
	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	info.Usage(w, args[0])
	return nil
}

func execute(s *session, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	if args[0] == "help" {
		return help(s.out, args[1:])
	}

	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(s, keywords)
	}

	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(s.out, args[0])
	}
	return err
}

func (c *Command) Usage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " ]")
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	maxLength++
	for _, arg := range append(c.args, c.optional...) {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var imageArgument = Argument{name: "IMAGE", help: "firmware region file (defaults to -image)"}

var commands = map[string]*Command{
	"verify": &Command{
		help:     "Check that IMAGE is signed by a quorum of distinct authorized signers",
		optional: []Argument{imageArgument},
		handler: func(s *session, args map[string]string) error {
			img, err := s.image(args)
			if err != nil {
				return err
			}
			hash, err := s.auth.Verify(img)
			if !errors.Is(err, bootloader.ErrNoFirmware) {
				fmt.Fprintf(s.out, "Fingerprint:\n")
				s.printFingerprint(hash)
			}
			if err != nil {
				fmt.Fprintf(s.out, "Signatures: %s (%s)\n", bootloader.SigFail, s.auth.Mode())
				return fmt.Errorf("%w: %w", ErrRejected, err)
			}
			fmt.Fprintf(s.out, "Signatures: %s (%s)\n", bootloader.SigOK, s.auth.Mode())
			return nil
		},
	},
	"hash": &Command{
		help:     "Print the content hash of IMAGE without checking signatures",
		optional: []Argument{imageArgument},
		handler: func(s *session, args map[string]string) error {
			img, err := s.image(args)
			if err != nil {
				return err
			}
			if !img.Present() {
				return bootloader.ErrNoFirmware
			}
			s.printFingerprint(sha256.Sum256(img.Code()))
			return nil
		},
	},
	"inspect": &Command{
		help:     "Print the metadata header of IMAGE",
		optional: []Argument{imageArgument},
		handler: func(s *session, args map[string]string) error {
			img, err := s.image(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Present:   %v\n", img.Present())
			fmt.Fprintf(s.out, "Code size: %d of %d bytes\n", img.CodeLen(), img.Capacity())
			for slot := 0; slot < flash.Slots; slot++ {
				fmt.Fprintf(s.out, "Slot %d:    signer %d, signature %x\n", slot+1, img.SignerIndex(slot), img.Signature(slot))
			}
			return nil
		},
	},
	"keys": &Command{
		help: "List the authorized signers' public keys",
		handler: func(s *session, args map[string]string) error {
			reg, err := s.config.Registry()
			if err != nil {
				return err
			}
			for i, key := range reg.Keys() {
				fmt.Fprintf(s.out, "%d %x\n", i+1, key)
			}
			return nil
		},
	},
}
