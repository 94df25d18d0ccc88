package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minhyannv/lightswitch-go/pkg/agent"
	"github.com/minhyannv/lightswitch-go/pkg/lights"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
)

// replOptions configures REPL behavior.
type replOptions struct {
	Verbose bool
	Logger  loggerpkg.Logger
}

// runREPL reads one line at a time and runs it as a turn until the user types x.
func runREPL(app *agent.AgentLoop, opts replOptions, in io.Reader, out io.Writer) error {
	if app == nil {
		return fmt.Errorf("agent loop is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	loggerpkg.Debug(opts.Verbose, opts.Logger, "repl start", nil)

	reader := bufio.NewReader(in)
	_, _ = fmt.Fprintln(out, "Program started. Type 'x' to exit.")

	for {
		_, _ = fmt.Fprint(out, "User: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		if err != nil && line == "" {
			_, _ = fmt.Fprintln(out)
			return nil
		}

		input := strings.TrimSpace(line)
		if strings.EqualFold(input, "x") {
			_, _ = fmt.Fprintln(out, "Exiting program. Goodbye!")
			break
		}
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") && handleCommand(input, app, out) {
			continue
		}

		replies, err := app.Run(input)
		if err != nil {
			loggerpkg.Error(opts.Logger, "turn failed", map[string]any{"error": err.Error()})
			_, _ = fmt.Fprintf(out, "An error occurred: %v\n", err)
			continue
		}
		for _, reply := range replies {
			_, _ = fmt.Fprintf(out, "Assistant: %s\n", reply)
		}
	}
	return nil
}

// handleCommand runs a local slash command. Unknown commands are left for the
// model and report false.
func handleCommand(input string, app *agent.AgentLoop, out io.Writer) bool {
	switch strings.ToLower(input) {
	case "/help", "/h":
		printHelp(out)
		return true
	case "/clear", "/c":
		app.Reset()
		_, _ = fmt.Fprintln(out, "Conversation history cleared.")
		return true
	case "/lights", "/l":
		printLights(app.Home(), out)
		return true
	default:
		return false
	}
}

func printLights(home *lights.Home, out io.Writer) {
	for _, room := range lights.Rooms() {
		state := "off"
		if on, _ := home.IsOn(string(room)); on {
			state = "on"
		}
		_, _ = fmt.Fprintf(out, "  %-8s %s\n", room, state)
	}
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  /help   - Show this help message")
	_, _ = fmt.Fprintln(out, "  /clear  - Clear conversation history")
	_, _ = fmt.Fprintln(out, "  /lights - Show the state of every light")
	_, _ = fmt.Fprintln(out, "  x       - Exit the program")
}
