// Package interactive provides the operator console of the greenhouse
// daemon.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// Controller is the part of the engine the console drives.
type Controller interface {
	IssueWrite(ctx context.Context, id field.ID, value any) (dispatch.Outcome, error)
	Refresh(ctx context.Context) error
	Flush(ctx context.Context) error
	Store() *state.Store
	Subscribe(l state.Listener) (cancel func())
	Pending(id field.ID) (reconcile.PendingWrite, bool)
	PollStats() (polls, failures uint64)
}

// Tester performs a one-shot connection test.
type Tester func(ctx context.Context) error

// Console handles interactive mode.
type Console struct {
	ctrl   Controller
	tester Tester
	rl     *readline.Instance
	out    io.Writer

	closeOnce sync.Once

	mu      sync.Mutex
	unwatch func()
}

// New creates a console reading from the terminal.
func New(ctrl Controller, tester Tester) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "greenhouse> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(ctrl, tester, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(ctrl Controller, tester Tester, out io.Writer) *Console {
	return &Console{ctrl: ctrl, tester: tester, out: out}
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the command loop. It returns when the operator quits, input
// ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.close()
	defer c.stopWatch()

	go func() {
		<-ctx.Done()
		c.close()
	}()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if ctx.Err() == nil {
				fmt.Fprintln(c.out, "Exiting...")
				cancel()
			}
			return
		}

		if !c.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should
// keep running.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "state", "s":
		c.cmdState()

	case "get", "g":
		c.cmdGet(args)

	case "set":
		c.cmdSet(ctx, args)

	case "on", "off":
		if len(args) != 1 {
			fmt.Fprintf(c.out, "Usage: %s <actuator>\n", cmd)
			return true
		}
		c.cmdSet(ctx, []string{args[0], cmd})

	case "refresh", "r":
		c.cmdRefresh(ctx)

	case "test", "t":
		c.cmdTest(ctx)

	case "pending", "p":
		c.cmdPending()

	case "watch", "w":
		c.cmdWatch(args)

	case "stats":
		polls, failures := c.ctrl.PollStats()
		fmt.Fprintf(c.out, "Polls: %d (%d failed)\n", polls, failures)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) close() {
	c.closeOnce.Do(func() {
		if c.rl != nil {
			c.rl.Close()
		}
	})
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Greenhouse Commands:
  Reading:
    state              - Show all fields and the connection status
    get <field>        - Show one field
    pending            - Show writes awaiting confirmation
    stats              - Show poll counters

  Control:
    set <field> <val>  - Write a value (on/off for actuators, number for setpoints)
    on <actuator>      - Switch an actuator on
    off <actuator>     - Switch an actuator off

  Connection:
    refresh            - Poll the controller now
    test               - Test the controller connection
    watch on|off       - Print value changes as they happen

  General:
    help               - Show this help
    quit               - Exit`)
}

func (c *Console) cmdState() {
	store := c.ctrl.Store()
	values := store.Values()

	conn := store.Connection()
	switch {
	case conn.Connected:
		fmt.Fprintf(c.out, "Controller: connected (last update %s)\n", conn.LastUpdate.Format(time.TimeOnly))
	case conn.LastError != "":
		fmt.Fprintf(c.out, "Controller: disconnected (%s)\n", conn.LastError)
	default:
		fmt.Fprintln(c.out, "Controller: waiting for first poll")
	}
	fmt.Fprintln(c.out)

	for _, fs := range store.All() {
		c.printField(fs, values)
	}
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: get <field>")
		return
	}
	id, err := field.Parse(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fs, _ := c.ctrl.Store().Get(id)
	c.printField(fs, c.ctrl.Store().Values())
}

func (c *Console) printField(fs state.FieldState, values map[field.ID]any) {
	meta, err := field.Lookup(fs.Field)
	if err != nil {
		return
	}
	value := field.Format(fs.Value)
	if meta.Unit != "" && fs.Value != nil {
		value += " " + meta.Unit
	}

	var notes []string
	if fs.Pending {
		notes = append(notes, "pending")
	}
	if meta.Kind == field.KindMeasurement {
		if st := field.Classify(fs.Field, values); st != field.StatusNormal {
			notes = append(notes, st.String())
		}
	}
	suffix := ""
	if len(notes) > 0 {
		suffix = " [" + strings.Join(notes, ", ") + "]"
	}
	fmt.Fprintf(c.out, "  %-14s %-22s %s%s\n", meta.Key, meta.Name, value, suffix)
}

func (c *Console) cmdSet(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: set <field> <value>")
		fmt.Fprintln(c.out, "  Example: set bulbOn on, set setpointTemp 25.5")
		return
	}
	id, err := field.Parse(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	value, err := field.ParseValue(id, args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	outcome, err := c.ctrl.IssueWrite(ctx, id, value)
	if err != nil {
		fmt.Fprintf(c.out, "%s: %s (%v)\n", id, outcome, err)
		return
	}
	_ = c.ctrl.Flush(ctx)
	fs, _ := c.ctrl.Store().Get(id)
	fmt.Fprintf(c.out, "%s: %s, now %s\n", id, outcome, field.Format(fs.Value))
}

func (c *Console) cmdRefresh(ctx context.Context) {
	if err := c.ctrl.Refresh(ctx); err != nil {
		fmt.Fprintf(c.out, "Refresh failed: %v\n", err)
		return
	}
	_ = c.ctrl.Flush(ctx)
	fmt.Fprintln(c.out, "Refreshed")
}

func (c *Console) cmdTest(ctx context.Context) {
	if c.tester == nil {
		fmt.Fprintln(c.out, "Connection test not available")
		return
	}
	start := time.Now()
	if err := c.tester(ctx); err != nil {
		fmt.Fprintf(c.out, "Connection failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Connection OK (%s)\n", time.Since(start).Round(time.Millisecond))
}

func (c *Console) cmdPending() {
	found := false
	for _, id := range field.Writable() {
		pw, ok := c.ctrl.Pending(id)
		if !ok {
			continue
		}
		found = true
		line := fmt.Sprintf("  %-14s -> %-6s %s", id, field.Format(pw.Target), pw.Status)
		if !pw.ExpiresAt.IsZero() {
			line += " until " + pw.ExpiresAt.Format(time.TimeOnly)
		}
		fmt.Fprintln(c.out, line)
	}
	if !found {
		fmt.Fprintln(c.out, "No pending writes")
	}
}

func (c *Console) cmdWatch(args []string) {
	on := len(args) == 0 || strings.EqualFold(args[0], "on")
	if on {
		c.startWatch()
		fmt.Fprintln(c.out, "Watching value changes")
		return
	}
	c.stopWatch()
	fmt.Fprintln(c.out, "Stopped watching")
}

func (c *Console) startWatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unwatch != nil {
		return
	}
	c.unwatch = c.ctrl.Subscribe(c.handleNotification)
}

func (c *Console) stopWatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
}

func (c *Console) handleNotification(n state.Notification) {
	switch n.Type {
	case state.NotifyValue:
		fmt.Fprintf(c.out, "[%s] %s: %s -> %s (%s)\n", n.State.UpdatedAt.Format(time.TimeOnly),
			n.Field, field.Format(n.Previous), field.Format(n.State.Value), n.State.Source)
	case state.NotifyWriteError:
		fmt.Fprintf(c.out, "[write failed] %s: %v\n", n.Field, n.Err)
	case state.NotifyConnection:
		if n.Connection.Connected {
			fmt.Fprintln(c.out, "[connection] controller reachable")
		} else {
			fmt.Fprintf(c.out, "[connection] controller unreachable: %s\n", n.Connection.LastError)
		}
	}
}

func completer() *readline.PrefixCompleter {
	var all, writable, actuators []readline.PrefixCompleterInterface
	for _, id := range field.All() {
		all = append(all, readline.PcItem(id.Key()))
		if id.Kind().Writable() {
			writable = append(writable, readline.PcItem(id.Key()))
		}
		if id.Kind() == field.KindActuator {
			actuators = append(actuators, readline.PcItem(id.Key()))
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("state"),
		readline.PcItem("get", all...),
		readline.PcItem("set", writable...),
		readline.PcItem("on", actuators...),
		readline.PcItem("off", actuators...),
		readline.PcItem("pending"),
		readline.PcItem("refresh"),
		readline.PcItem("test"),
		readline.PcItem("watch", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("stats"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
