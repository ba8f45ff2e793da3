// Command rawsql runs hand-written SELECT statements against a SQLite
// database and prints each row as an instance of a model declared in a YAML
// file, followed by the extra columns the query selected.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/go-mizu/rawsql"
	"github.com/go-mizu/rawsql/internal/logging"
	"github.com/go-mizu/rawsql/internal/modelfile"
	"github.com/go-mizu/rawsql/internal/sqlite"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (${enum})"`

	Stdout io.Writer    `kong:"-"`
	Stderr io.Writer    `kong:"-"`
	logger *slog.Logger `kong:"-"`
}

// CLI defines the command-line interface for rawsql.
type CLI struct {
	Globals

	Query   QueryCmd   `cmd:"" help:"Run a raw SELECT and print the materialized rows"`
	Models  ModelsCmd  `cmd:"" help:"List the models of a model file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// QueryCmd runs one raw query.
type QueryCmd struct {
	DB        string            `name:"db" required:"" env:"RAWSQL_DB" type:"existingfile" help:"SQLite database file"`
	Models    string            `name:"models" required:"" env:"RAWSQL_MODELS" type:"existingfile" help:"YAML model file"`
	Model     string            `name:"model" short:"m" required:"" help:"Model the rows are read as"`
	Translate map[string]string `name:"translate" short:"t" help:"Column to field translation (column=field), repeatable"`
	JSON      bool              `name:"json" help:"Print rows as JSON lines"`

	SQL  string   `arg:"" name:"sql" help:"SELECT statement"`
	Args []string `arg:"" optional:"" name:"args" help:"Positional query parameters"`
}

// Run executes the query.
func (c *QueryCmd) Run(g *Globals) error {
	ctx := logging.WithRunID(context.Background())
	log := logging.FromContext(ctx, g.logger)

	set, err := modelfile.Load(c.Models)
	if err != nil {
		return err
	}
	schema, err := set.Schema(c.Model)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(c.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i] = a
	}
	log.Info("running raw query", "model", schema.Name, "driver", sqlite.DriverType(), "params", len(args))

	rs, err := rawsql.RawRecords(ctx, db, schema, c.SQL, rawsql.Translations(c.Translate), args...)
	if err != nil {
		return err
	}
	rows, err := rs.Rows()
	if err != nil {
		return err
	}
	names, _ := rs.Annotations()
	log.Info("raw query done", "rows", len(rows), "annotations", names)

	if c.JSON {
		return writeJSON(g.Stdout, schema, rows)
	}
	return writeTable(g.Stdout, schema, names, rows)
}

// ModelsCmd lists the models of a model file.
type ModelsCmd struct {
	Models string `name:"models" required:"" env:"RAWSQL_MODELS" type:"existingfile" help:"YAML model file"`
}

// Run prints every model and its fields.
func (c *ModelsCmd) Run(g *Globals) error {
	set, err := modelfile.Load(c.Models)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range set.Names() {
		schema, _ := set.Schema(name)
		fmt.Fprintf(tw, "%s\n", schema.Name)
		for _, f := range schema.Fields {
			var flags []string
			if f.Primary {
				flags = append(flags, "pk")
			}
			if f.Ref != "" {
				flags = append(flags, "ref="+f.Ref)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.Name, f.Column, f.Kind, strings.Join(flags, ","))
		}
	}
	return tw.Flush()
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run prints version information.
func (c *VersionCmd) Run(g *Globals) error {
	_, err := fmt.Fprintf(g.Stdout, "rawsql %s (sqlite %s)\n", version, sqlite.DriverType())
	return err
}

func writeTable(w io.Writer, schema *rawsql.Schema, names []string, rows []*rawsql.Row[rawsql.Record]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var header []string
	for _, f := range schema.Required() {
		header = append(header, f.Name)
	}
	header = append(header, names...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range rows {
		cells := make([]string, 0, len(header))
		for _, f := range schema.Required() {
			cells = append(cells, formatValue(r.Model[f.Name]))
		}
		for _, n := range names {
			v, _ := r.Annotation(n)
			cells = append(cells, formatValue(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, schema *rawsql.Schema, rows []*rawsql.Row[rawsql.Record]) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		out := map[string]any{"model": schema.Name, "fields": jsonValues(r.Model)}
		if names := r.AnnotationNames(); len(names) > 0 {
			ann := make(map[string]any, len(names))
			for _, n := range names {
				v, _ := r.Annotation(n)
				ann[n] = jsonValue(v)
			}
			out["annotations"] = ann
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func jsonValues(rec rawsql.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// run parses args and executes the selected command. It is main without the
// process exit, for tests.
func run(args []string, stdout, stderr io.Writer) error {
	cli := CLI{Globals: Globals{Stdout: stdout, Stderr: stderr}}
	parser, err := kong.New(&cli,
		kong.Name("rawsql"),
		kong.Description("Map raw SQL results onto declared models"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		return err
	}
	cli.logger = logging.New(stderr, level, format)
	rawsql.SetLogger(cli.logger)

	return kctx.Run(&cli.Globals)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
