package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/suparena/docproxy"
	"github.com/suparena/docproxy/config"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// Document is the schemaless document type the CLI works with.
type Document = map[string]any

// whereFlags collects repeated -where field=value arguments.
type whereFlags []query.Filter

func (w *whereFlags) String() string {
	parts := make([]string, len(*w))
	for i, f := range *w {
		parts[i] = fmt.Sprintf("%s=%v", f.Field, f.Value)
	}
	return strings.Join(parts, ",")
}

func (w *whereFlags) Set(s string) error {
	field, raw, ok := strings.Cut(s, "=")
	if !ok || field == "" {
		return fmt.Errorf("expected field=value, got %q", s)
	}
	*w = append(*w, query.Filter{Field: field, Op: query.Eq, Value: parseValue(raw)})
	return nil
}

// parseValue reads raw as a JSON scalar (number, bool, null, quoted string)
// and falls back to the literal text.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case map[string]any, []any:
		default:
			return v
		}
	}
	return raw
}

type options struct {
	configPath string
	op         string
	id         string
	pk         string
	file       string
	where      whereFlags
	orderBy    string
	top        int
	pageSize   int
	debug      bool
	version    bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("docproxy", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&o.op, "op", "", "Operation: create, replace, upsert, get or query")
	fs.StringVar(&o.id, "id", "", "Document id (replace, get)")
	fs.StringVar(&o.pk, "pk", "", "Partition key; JSON scalar or bare string")
	fs.StringVar(&o.file, "file", "-", "JSON document to write, - for stdin")
	fs.Var(&o.where, "where", "Query filter field=value (repeatable)")
	fs.StringVar(&o.orderBy, "order", "", "Order by field; prefix with - for descending")
	fs.IntVar(&o.top, "top", 0, "Limit the number of query results")
	fs.IntVar(&o.pageSize, "page-size", 0, "Query page size hint")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.version, "version", false, "Show version information")
	fs.BoolVar(&o.version, "v", false, "Show version information (short)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Handle version flag
	if o.version {
		info := docproxy.GetVersionInfo()
		fmt.Fprintf(stdout, "docproxy version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	}

	logger, err := newLogger(o.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, clientOpts, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	proxy, err := docproxy.New[Document](ctx, cfg, clientOpts, docproxy.WithLogger(logger))
	if err != nil {
		return err
	}

	result, err := execute(ctx, proxy, o, stdin)
	if err != nil {
		logger.Debug("operation failed", zap.String("op", o.op), zap.Error(err))
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func execute(ctx context.Context, proxy *docproxy.Proxy[Document], o *options, stdin io.Reader) (any, error) {
	switch o.op {
	case "create", "replace", "upsert":
		pk, err := partitionKey(o.pk)
		if err != nil {
			return nil, err
		}
		doc, err := readDocument(o.file, stdin)
		if err != nil {
			return nil, err
		}
		var resp *storagemodels.ItemResponse[Document]
		switch o.op {
		case "create":
			resp, err = proxy.Create(ctx, doc, pk, nil)
		case "upsert":
			resp, err = proxy.Upsert(ctx, doc, pk, nil)
		default:
			id := o.id
			if id == "" {
				if id, err = storagemodels.DocumentID(doc); err != nil {
					return nil, err
				}
			}
			resp, err = proxy.Replace(ctx, doc, id, pk, nil)
		}
		if err != nil {
			return nil, err
		}
		return resp, nil

	case "get":
		if o.id == "" {
			return nil, fmt.Errorf("-id is required for get")
		}
		pk, err := partitionKey(o.pk)
		if err != nil {
			return nil, err
		}
		return proxy.GetByID(ctx, o.id, pk, nil)

	case "query":
		var opts *storagemodels.QueryRequestOptions
		if o.pk != "" || o.pageSize > 0 {
			opts = &storagemodels.QueryRequestOptions{MaxItemCount: int32(o.pageSize)}
			if o.pk != "" {
				pk, err := partitionKey(o.pk)
				if err != nil {
					return nil, err
				}
				opts.PartitionKey = &pk
			}
		}
		return proxy.GetDocuments(ctx, o.condition(), opts)

	case "":
		return nil, fmt.Errorf("-op is required")
	default:
		return nil, fmt.Errorf("unknown operation %q", o.op)
	}
}

// condition turns the query flags into a query.Condition.
func (o *options) condition() query.Condition {
	if len(o.where) == 0 && o.orderBy == "" && o.top == 0 {
		return nil
	}
	return func(q query.Query) query.Query {
		for _, f := range o.where {
			q = q.Where(f.Field, f.Op, f.Value)
		}
		if field, desc := strings.CutPrefix(o.orderBy, "-"); desc {
			q = q.OrderByDesc(field)
		} else if o.orderBy != "" {
			q = q.OrderBy(o.orderBy)
		}
		if o.top > 0 {
			q = q.Top(o.top)
		}
		return q
	}
}

func partitionKey(raw string) (storagemodels.PartitionKey, error) {
	if raw == "" {
		return storagemodels.PartitionKey{}, fmt.Errorf("-pk is required")
	}
	return storagemodels.ParsePartitionKey(raw)
}

func readDocument(path string, stdin io.Reader) (Document, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", strconv.Quote(path), err)
	}
	return doc, nil
}
