// Command pdfmerge merges every PDF found under a directory tree into a
// single output document with a generated outline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/wudi/pdfmerge/discover"
	"github.com/wudi/pdfmerge/merge"
	"github.com/wudi/pdfmerge/observability"
	"github.com/wudi/pdfmerge/optimize"
	"github.com/wudi/pdfmerge/writer"
)

// defaultOutputName is reserved: files with this name are never picked up as
// merge inputs.
const defaultOutputName = "merged.pdf"

type options struct {
	inPath   string
	outPath  string
	annotate bool
	verbose  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfmerge: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pdfmerge: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfmerge", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfmerge [flags] [input-path] [output-path]\n")
		fs.PrintDefaults()
	}
	fs.BoolVar(&opts.annotate, "anno", false, "Annotate file names onto first pages (reserved, no effect yet)")
	fs.BoolVar(&opts.annotate, "a", false, "Shorthand for -anno")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 2 {
		fs.Usage()
		return options{}, fmt.Errorf("too many arguments")
	}
	opts.inPath = "."
	opts.outPath = defaultOutputName
	if fs.NArg() >= 1 {
		opts.inPath = fs.Arg(0)
	}
	if fs.NArg() == 2 {
		opts.outPath = fs.Arg(1)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	logger := newLogger(opts.verbose)

	fmt.Fprintf(out, "Path: %s\n", opts.inPath)
	sources, err := discover.Scan(ctx, opts.inPath, discover.Options{
		Exclude: defaultOutputName,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(out, "No PDFs found")
		return nil
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	inputs := make([]merge.Input, 0, len(sources))
	fmt.Fprintln(out, "Order:")
	for _, src := range sources {
		fmt.Fprintf(out, "    %s (%d pages)\n", src.Name, src.Pages)
		inputs = append(inputs, merge.Input{Doc: src.Doc, Name: src.Name})
	}

	engine := merge.New(merge.Config{
		Logger:   logger,
		Optimize: optimize.DefaultConfig(),
	})
	doc, err := engine.Merge(ctx, inputs)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writer.NewWriter().Write(ctx, doc, f, writer.Config{}); err != nil {
		f.Close()
		os.Remove(opts.outPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(opts.outPath)
		return fmt.Errorf("close output: %w", err)
	}

	fmt.Fprintf(out, "Merged: %s (%d pages)\n", opts.outPath, doc.PageCount())
	return nil
}

func newLogger(verbose bool) observability.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return observability.NewLogrusLogger(l)
}
