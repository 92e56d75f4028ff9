package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/leengari/jsondb/internal/engine"
	"github.com/leengari/jsondb/internal/storage/manager"
)

const helpText = `Queries:
  SELECT <cols> FROM <table> [WHERE <expr>]
  INSERT INTO <table> VALUES {"col": value, ...} | (value, ...)
  UPDATE <table> SET col = value, ... [WHERE <expr>]
  DELETE FROM <table> [WHERE <expr>]
Commands:
  .tables                          list tables
  .create <table> <col,col,...> [pk]  create a table
  .drop <table>                    drop a table
  .index <table> <col>             build an index
  .backup                          copy db.json to db.json.bak
  .restore                         restore from db.json.bak
  .metrics                         print query metrics
  .help                            show this help
  .exit                            quit`

// Console reads queries and dot commands line by line
type Console struct {
	eng      *engine.Engine
	db       *manager.Database
	gatherer prometheus.Gatherer
	prompt   string

	out io.Writer

	errColor  *color.Color
	okColor   *color.Color
	headColor *color.Color
}

// Option configures a Console
type Option func(*Console)

// WithPrompt sets the input prompt
func WithPrompt(prompt string) Option {
	return func(c *Console) { c.prompt = prompt }
}

// WithColor enables or disables colored output
func WithColor(enabled bool) Option {
	return func(c *Console) {
		for _, col := range []*color.Color{c.errColor, c.okColor, c.headColor} {
			if enabled {
				col.EnableColor()
			} else {
				col.DisableColor()
			}
		}
	}
}

// WithGatherer sets the metrics source for .metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Console) { c.gatherer = g }
}

// New creates a console writing to out
func New(eng *engine.Engine, out io.Writer, opts ...Option) *Console {
	c := &Console{
		eng:       eng,
		db:        eng.Database(),
		prompt:    "jsondb> ",
		out:       out,
		errColor:  color.New(color.FgRed),
		okColor:   color.New(color.FgGreen),
		headColor: color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes lines from in until EOF, .exit or context cancellation
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(c.out, "Welcome to jsondb")
	fmt.Fprintln(c.out, "Type .help for usage, .exit to quit.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(c.out, c.prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		if line == ".exit" || line == "exit" || line == "\\q" {
			return nil
		}

		if strings.HasPrefix(line, ".") {
			c.command(line)
			continue
		}

		result, err := c.eng.ExecuteContext(ctx, line)
		if err != nil {
			c.errColor.Fprintf(c.out, "Error: %v\n", err)
			continue
		}
		c.PrintResult(result)
	}
}

// command runs a dot command
func (c *Console) command(line string) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case ".help":
		fmt.Fprintln(c.out, helpText)
	case ".tables":
		for _, t := range c.db.Tables() {
			fmt.Fprintln(c.out, t)
		}
	case ".create":
		err = c.createTable(args)
	case ".drop":
		if len(args) != 1 {
			err = fmt.Errorf("usage: .drop <table>")
			break
		}
		if err = c.db.DropTable(args[0]); err == nil {
			c.okColor.Fprintf(c.out, "table %s dropped\n", args[0])
		}
	case ".index":
		err = c.createIndex(args)
	case ".backup":
		if err = c.db.Backup(); err == nil {
			c.okColor.Fprintln(c.out, "backup written")
		}
	case ".restore":
		var restored bool
		if restored, err = c.db.Restore(); err == nil {
			if restored {
				c.okColor.Fprintln(c.out, "database restored from backup")
			} else {
				fmt.Fprintln(c.out, "no backup found")
			}
		}
	case ".metrics":
		err = c.printMetrics()
	default:
		err = fmt.Errorf("unknown command %s (try .help)", name)
	}

	if err != nil {
		c.errColor.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) createTable(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: .create <table> <col,col,...> [pk]")
	}
	columns := strings.Split(args[1], ",")
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}
	pk := ""
	if len(args) == 3 {
		pk = args[2]
	}

	if _, err := c.db.CreateTable(args[0], columns, pk); err != nil {
		return err
	}
	c.okColor.Fprintf(c.out, "table %s created\n", args[0])
	return nil
}

func (c *Console) createIndex(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: .index <table> <col>")
	}
	table, err := c.db.GetTable(args[0])
	if err != nil {
		return err
	}
	if err := table.CreateIndex(args[1]); err != nil {
		return err
	}
	c.okColor.Fprintf(c.out, "index on %s.%s created\n", args[0], args[1])
	return nil
}

func (c *Console) printMetrics() error {
	if c.gatherer == nil {
		return fmt.Errorf("metrics are disabled")
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(c.out, mf); err != nil {
			return err
		}
	}
	return nil
}

// PrintResult writes a query result as an aligned table
func (c *Console) PrintResult(res *engine.Result) {
	if res.Message != "" {
		c.okColor.Fprintln(c.out, res.Message)
	}

	if len(res.Columns) == 0 {
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)

	// Header
	for i, col := range res.Columns {
		fmt.Fprint(tw, c.headColor.Sprint(col))
		if i < len(res.Columns)-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Separator
	for i := range res.Columns {
		fmt.Fprint(tw, "---")
		if i < len(res.Columns)-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Rows
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			val := row[col]
			switch v := val.(type) {
			case nil:
				fmt.Fprint(tw, "NULL")
			case string:
				fmt.Fprint(tw, v)
			default:
				fmt.Fprintf(tw, "%v", v)
			}
			if i < len(res.Columns)-1 {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
