// Package console is the interactive admin shell. It drives the same flow
// controllers as the web back office against a local or remote service.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/natefinch/atomic"

	"motoriz/internal/core"
	"motoriz/internal/export"
	"motoriz/internal/flow"
	"motoriz/internal/form"
	"motoriz/pkg/domain"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("console: quit")

// Prompter reads one line of input. *liner.State satisfies it.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

// Options configures a Console.
type Options struct {
	Prompter Prompter
	Out      io.Writer
	// Session mirrors the token and dashboard after every change when set.
	Session *SessionFile
	// State is the session loaded at startup.
	State SessionState
	// ExportDir is where export writes files without an explicit path.
	ExportDir string
	Logger    core.Logger
}

// Console holds the shell state.
type Console struct {
	svc     *core.Service
	in      Prompter
	out     io.Writer
	notices *flow.ChannelNotifier
	views   map[string]view
	order   []string
	current string
	queries map[string]string
	session *SessionFile
	state   SessionState
	dir     string
	logger  core.Logger
}

// New returns a console positioned on the products collection.
func New(svc *core.Service, opts Options) *Console {
	c := &Console{
		svc:     svc,
		in:      opts.Prompter,
		out:     opts.Out,
		notices: flow.NewChannelNotifier(32),
		views:   map[string]view{},
		queries: map[string]string{},
		session: opts.Session,
		state:   opts.State,
		dir:     opts.ExportDir,
		logger:  opts.Logger,
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.logger == nil {
		c.logger = svc.Logger()
	}
	for _, v := range buildViews(svc, flow.ConfirmFunc(c.confirm), c.notices) {
		c.views[v.name()] = v
		c.order = append(c.order, v.name())
	}
	c.current = core.ResourceProducts
	return c
}

// confirm asks a yes/no question on the prompter.
func (c *Console) confirm(_ context.Context, prompt string) (bool, error) {
	if c.in == nil {
		return false, nil
	}
	answer, err := c.in.Prompt(prompt + " (yes/no) ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "ya":
		return true, nil
	default:
		return false, nil
	}
}

// Current returns the selected collection.
func (c *Console) Current() string { return c.current }

// PromptLabel renders the prompt for the current state.
func (c *Console) PromptLabel() string {
	v := c.views[c.current]
	switch st := v.state(); st.Mode {
	case flow.Creating:
		return fmt.Sprintf("motoriz %s [add]> ", c.current)
	case flow.Editing:
		return fmt.Sprintf("motoriz %s [edit %d]> ", c.current, st.ID)
	default:
		return fmt.Sprintf("motoriz %s> ", c.current)
	}
}

// Completions returns command names starting with prefix.
func (c *Console) Completions(line string) []string {
	var out []string
	if rest, ok := strings.CutPrefix(line, "use "); ok {
		for _, name := range c.order {
			if strings.HasPrefix(name, rest) {
				out = append(out, "use "+name)
			}
		}
		return out
	}
	for _, cmd := range commands {
		if strings.HasPrefix(cmd.name, line) {
			out = append(out, cmd.name)
		}
	}
	return out
}

type command struct {
	name  string
	usage string
	short string
}

var commands = []command{
	{"help", "help", "show this help"},
	{"use", "use <collection>", "switch collection"},
	{"list", "list", "list the collection"},
	{"search", "search <text>", "filter the list (empty clears)"},
	{"add", "add", "open the add dialog"},
	{"edit", "edit <id>", "open the edit dialog"},
	{"set", "set <field> <value>", "change a draft field"},
	{"show", "show", "print the open draft"},
	{"save", "save", "submit the open draft"},
	{"cancel", "cancel", "close the dialog without saving"},
	{"delete", "delete <id>", "delete a record after confirmation"},
	{"export", "export [file]", "write the filtered list as CSV"},
	{"dashboard", "dashboard", "print the dashboard counters"},
	{"orphans", "orphans", "list products whose category is gone"},
	{"quit", "quit", "leave the console"},
}

// Run reads commands until quit or end of input.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Motoriz admin console. Type 'help' for commands.")
	for {
		line, err := c.in.Prompt(c.PromptLabel())
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if err := c.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		c.flushNotices()
	}
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	v := c.views[c.current]
	switch strings.ToLower(name) {
	case "help", "?":
		c.printHelp()
	case "quit", "exit", "q":
		return ErrQuit
	case "use":
		return c.use(rest)
	case "list", "ls":
		c.printList(v)
	case "search":
		c.queries[c.current] = rest
		c.printList(v)
	case "add":
		if _, err := v.add(); err != nil {
			return err
		}
		c.printDraft(v)
	case "edit":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if _, err := v.edit(id); err != nil {
			return err
		}
		c.printDraft(v)
	case "set":
		field, value, ok := strings.Cut(rest, " ")
		if !ok && field == "" {
			return errors.New("usage: set <field> <value>")
		}
		return v.set(field, strings.TrimSpace(value))
	case "show":
		c.printDraft(v)
	case "save":
		id, err := v.save(ctx)
		if err != nil {
			c.printProblems(err)
			return nil
		}
		fmt.Fprintf(c.out, "saved %s %d\n", c.current, id)
		c.mirror()
	case "cancel":
		v.cancel()
	case "delete", "rm":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		deleted, err := v.remove(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Fprintln(c.out, "not deleted")
			return nil
		}
		c.mirror()
	case "export":
		return c.export(v, rest)
	case "dashboard":
		c.printDashboard()
	case "orphans":
		for _, p := range c.svc.OrphanedProducts() {
			fmt.Fprintf(c.out, "%d\t%s\tcategory %d\n", p.ID, p.Name, p.CategoryID)
		}
	default:
		return fmt.Errorf("unknown command %q (type 'help')", name)
	}
	return nil
}

func parseID(s string) (domain.ID, error) {
	id, err := domain.ParseID(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (c *Console) use(name string) error {
	v, ok := c.views[name]
	if !ok {
		return fmt.Errorf("unknown collection %q (one of %s)", name, strings.Join(c.order, ", "))
	}
	if st := c.views[c.current].state(); st.Mode != flow.Closed {
		return fmt.Errorf("%s dialog is open; save or cancel first", c.current)
	}
	c.current = v.name()
	return nil
}

func (c *Console) printHelp() {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.usage, cmd.short)
	}
	_ = tw.Flush()
	fmt.Fprintf(c.out, "collections: %s\n", strings.Join(c.order, ", "))
}

func (c *Console) printList(v view) {
	rows := v.rows(c.queries[c.current])
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.columns(), "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	if q := c.queries[c.current]; q != "" {
		fmt.Fprintf(c.out, "%d match %q\n", len(rows), q)
	}
}

func (c *Console) printDraft(v view) {
	d := v.draft()
	if d == nil {
		fmt.Fprintln(c.out, "no dialog open")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, f := range v.fields() {
		mark := ""
		if f.Required {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s%s\t%s\t%s\n", f.Name, mark, f.Label, d[f.Name])
	}
	_ = tw.Flush()
}

func (c *Console) printProblems(err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		if multi, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range multi.Unwrap() {
				fmt.Fprintf(c.out, "  %v\n", e)
			}
			return
		}
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
}

func (c *Console) flushNotices() {
	for {
		select {
		case n := <-c.notices.C():
			if n.Level == flow.Success {
				c.logger.Info(n.Message, "entity", n.Entity)
				continue
			}
			c.logger.Debug(n.Message, "entity", n.Entity, "level", n.Level)
		default:
			return
		}
	}
}

func (c *Console) export(v view, target string) error {
	domainName := v.exportDomain()
	if domainName == "" {
		return fmt.Errorf("%s cannot be exported", c.current)
	}
	table, err := export.Build(c.svc, domainName, core.ProductQuery{Search: c.queries[c.current]})
	if err != nil {
		return err
	}
	data, err := table.Bytes()
	if err != nil {
		return err
	}
	if target == "" {
		target = filepath.Join(c.dir, export.Filename(domainName, c.svc.Clock().Now()))
	}
	if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	c.svc.Metrics().ObserveExport(domainName)
	fmt.Fprintf(c.out, "wrote %d rows to %s\n", len(table.Rows), target)
	return nil
}

func (c *Console) printDashboard() {
	stats := c.svc.Dashboard()
	fmt.Fprintf(c.out, "Total Motor     %d\n", stats.TotalMotor)
	fmt.Fprintf(c.out, "Total Produk    %d\n", stats.TotalProducts)
	fmt.Fprintf(c.out, "Total Layanan   %d\n", stats.TotalServices)
	fmt.Fprintf(c.out, "Total Reservasi %d\n", stats.TotalReservations)
	if len(stats.LowStock) == 0 {
		return
	}
	fmt.Fprintln(c.out, "Stok menipis:")
	items := append([]core.LowStockItem(nil), stats.LowStock...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Stock < items[j].Stock })
	for _, it := range items {
		fmt.Fprintf(c.out, "  %-28s %d\n", it.Name, it.Stock)
	}
}

// mirror writes the current dashboard into the session file.
func (c *Console) mirror() {
	if c.session == nil {
		return
	}
	stats := c.svc.Dashboard()
	c.state.Dashboard = &stats
	c.state.UpdatedAt = time.Now().UTC()
	if err := c.session.Save(c.state); err != nil {
		c.logger.Warn("session mirror failed", "path", c.session.Path, "error", err)
	}
}

// Fields lists the form of the current collection, used by completion.
func (c *Console) Fields() []form.Field { return c.views[c.current].fields() }
