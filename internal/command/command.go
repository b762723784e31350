// Package command interprets slash commands embedded in outgoing chat lines.
//
// A line is a command when it starts with the sender border immediately
// followed by '/'. Commands never touch the transport: each one produces
// zero or more new chat lines that the caller relays through its normal
// send path. The literal command line itself is never relayed.
package command

import (
	"math/rand"
	"strings"
)

// Kind tags an Invocation for dispatch.
type Kind int

const (
	// Unrecognized covers unknown names and hub-only commands issued by a
	// client. Both are silent no-ops.
	Unrecognized Kind = iota
	// Public commands run on every process.
	Public
	// HubOnly commands run only on the hub.
	HubOnly
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case HubOnly:
		return "hub-only"
	default:
		return "unrecognized"
	}
}

// Invocation is a parsed command line.
type Invocation struct {
	Kind Kind
	Name string
	Args []string
}

// Env is what command handlers may read.
type Env struct {
	Username string
	Border   string
	// Online lists the names of connected peers. Only set on a hub.
	Online func() []string
	// Rand returns a value in [0, n).
	Rand func(n int) int
}

// Handler produces the chat lines a command emits.
type Handler func(env Env, args []string) []string

// Command is one entry of the command table.
type Command struct {
	Name  string
	Kind  Kind
	Usage string
	Run   Handler
}

// Config configures an Interpreter.
type Config struct {
	Hub      bool
	Username string
	Border   string
	Online   func() []string
	Rand     func(n int) int
	// Commands replaces the built-in table when non-nil.
	Commands []Command
}

// Interpreter dispatches command lines against a role-gated table.
type Interpreter struct {
	hub      bool
	env      Env
	commands map[string]Command
}

// New creates an Interpreter.
func New(cfg Config) *Interpreter {
	if cfg.Rand == nil {
		cfg.Rand = rand.Intn
	}
	if cfg.Online == nil {
		cfg.Online = func() []string { return nil }
	}
	table := cfg.Commands
	if table == nil {
		table = Builtins()
	}
	it := &Interpreter{
		hub: cfg.Hub,
		env: Env{
			Username: cfg.Username,
			Border:   cfg.Border,
			Online:   cfg.Online,
			Rand:     cfg.Rand,
		},
		commands: make(map[string]Command, len(table)),
	}
	for _, c := range table {
		it.commands[c.Name] = c
	}
	return it
}

// Parse splits msg into a command name and arguments. It reports false when
// msg is not command syntax: missing border, no '/' right after it, or
// nothing after the '/'. The returned Kind is always Unrecognized; use
// Classify to resolve it against a table.
func Parse(msg, border string) (Invocation, bool) {
	rest, ok := strings.CutPrefix(msg, border)
	if !ok {
		return Invocation{}, false
	}
	rest, ok = strings.CutPrefix(rest, "/")
	if !ok {
		return Invocation{}, false
	}
	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return Invocation{}, false
	}
	return Invocation{Kind: Unrecognized, Name: tokens[0], Args: tokens[1:]}, true
}

// Classify parses msg and resolves its kind for this process's role.
func (it *Interpreter) Classify(msg string) (Invocation, bool) {
	inv, ok := Parse(msg, it.env.Border)
	if !ok {
		return inv, false
	}
	c, known := it.commands[inv.Name]
	switch {
	case !known:
	case c.Kind == HubOnly && !it.hub:
	default:
		inv.Kind = c.Kind
	}
	return inv, true
}

// Interpret runs msg if it is a command. It reports whether msg was
// consumed; when it was, the caller must not relay msg and should relay
// each returned line instead.
func (it *Interpreter) Interpret(msg string) ([]string, bool) {
	inv, ok := it.Classify(msg)
	if !ok {
		return nil, false
	}
	if inv.Kind == Unrecognized {
		return nil, true
	}
	return it.commands[inv.Name].Run(it.env, inv.Args), true
}
