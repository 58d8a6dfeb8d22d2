package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/redpkg"
	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/collect"
	"github.com/wippyai/redpkg/config"
	"github.com/wippyai/redpkg/dump"
	"github.com/wippyai/redpkg/query"
	"github.com/wippyai/redpkg/source"
)

type flags struct {
	file           string
	configFile     string
	kind           string
	compression    string
	query          string
	format         string
	out            string
	outCompression string
	collect        string
	hashImports    bool
	list           bool
	roundtrip      bool
	verbose        bool
	interactive    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var f flags
	fs := pflag.NewFlagSet("redpkg", pflag.ContinueOnError)
	fs.StringVarP(&f.file, "file", "f", "", "package file to read")
	fs.StringVarP(&f.configFile, "config", "c", "", "options file (YAML or JSONC)")
	fs.StringVar(&f.kind, "kind", "", "package kind: default, save-resource, scriptable-system")
	fs.StringVar(&f.compression, "compression", "", "input framing: auto, none, lz4, zstd")
	fs.BoolVar(&f.hashImports, "hash-imports", false, "imports are stored as path hashes")
	fs.StringVarP(&f.query, "query", "q", "", "only show chunks matching this expression")
	fs.StringVar(&f.format, "format", "text", "output format: text, json, cbor")
	fs.BoolVarP(&f.list, "list", "l", false, "list chunks and exit")
	fs.BoolVar(&f.roundtrip, "roundtrip", false, "re-encode and compare with the input")
	fs.StringVarP(&f.out, "out", "o", "", "re-encode the package to this file")
	fs.StringVar(&f.outCompression, "out-compression", "none", "output framing: none, lz4, zstd")
	fs.StringVar(&f.collect, "collect", "", "write collected pool entries to this CBOR file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging to stderr")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "browse chunks in a terminal UI")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if f.file == "" && fs.NArg() == 1 {
		f.file = fs.Arg(0)
	}
	if f.file == "" {
		fmt.Fprintln(os.Stderr, "Usage: redpkg [flags] <file>")
		fmt.Fprintln(os.Stderr, "       redpkg -l <file>             (list chunks)")
		fmt.Fprintln(os.Stderr, "       redpkg -q 'expr' <file>      (filter chunks)")
		fmt.Fprintln(os.Stderr, "       redpkg -i <file>             (interactive mode)")
		fs.PrintDefaults()
		return fmt.Errorf("no package file given")
	}

	logger, err := newLogger(f.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	codec.SetLogger(logger)

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	mode, err := cfg.CompressionMode()
	if err != nil {
		return err
	}

	var coll *collect.Collection
	if f.collect != "" {
		coll = collect.New(nil)
		opts.Collection = coll
		opts.CollectData = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, err := source.ReadFile(f.file, mode)
	if err != nil {
		return err
	}
	pkg, reg, err := redpkg.Decode(ctx, data, opts)
	if err != nil {
		return err
	}
	logger.Debug("decoded package",
		zap.String("file", f.file),
		zap.Int("chunks", len(pkg.Chunks)),
		zap.Int("imports", len(pkg.Imports)),
		zap.Int("names", len(pkg.Names)))

	if coll != nil {
		if err := writeCollection(f.collect, coll); err != nil {
			return err
		}
	}

	if f.roundtrip {
		fp, err := redpkg.Verify(data, pkg, reg, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "roundtrip ok %s\n", fp)
	}

	if f.out != "" {
		outMode, err := source.ParseCompression(f.outCompression)
		if err != nil {
			return err
		}
		if err := redpkg.Save(f.out, pkg, reg, opts, outMode); err != nil {
			return err
		}
		logger.Debug("wrote package", zap.String("file", f.out), zap.Stringer("compression", outMode))
	}

	var selected []int
	if f.query != "" {
		filter, err := query.Compile(f.query)
		if err != nil {
			return err
		}
		if selected, err = filter.Select(pkg, reg); err != nil {
			return err
		}
	}

	if f.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(f.file, pkg, reg)
	}

	// Verification and re-encoding print nothing more unless asked to.
	if (f.roundtrip || f.out != "") && !f.list && f.query == "" {
		return nil
	}

	doc, err := dump.Snapshot(pkg, reg)
	if err != nil {
		return err
	}
	if f.query != "" {
		chunks := make([]dump.ChunkDoc, len(selected))
		for i, idx := range selected {
			chunks[i] = doc.Chunks[idx]
		}
		doc.Chunks = chunks
	}

	if f.list {
		for _, c := range doc.Chunks {
			fmt.Fprintln(stdout, dump.ChunkLabel(c))
		}
		return nil
	}

	switch f.format {
	case "text":
		return dump.WriteText(stdout, doc)
	case "json":
		return dump.WriteJSON(stdout, doc)
	case "cbor":
		return dump.WriteCBOR(stdout, doc)
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}
}

// loadConfig reads the options file, then applies flags the user set.
func loadConfig(fs *pflag.FlagSet, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(f.configFile); err != nil {
			return nil, err
		}
	}
	if fs.Changed("kind") {
		cfg.Kind = f.kind
	}
	if fs.Changed("compression") {
		cfg.Compression = f.compression
	}
	if fs.Changed("hash-imports") {
		cfg.ImportsAsHash = f.hashImports
	}
	return cfg, cfg.Validate()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

func writeCollection(path string, coll *collect.Collection) error {
	var buf bytes.Buffer
	if err := coll.WriteCBOR(&buf); err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}
