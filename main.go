package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chrisuehlinger/folio/config"
	"github.com/chrisuehlinger/folio/paged"
	"github.com/chrisuehlinger/folio/pipeline"
	"github.com/chrisuehlinger/folio/render"
	"github.com/chrisuehlinger/folio/server"
	"github.com/chrisuehlinger/folio/ui"
)

const usage = `usage:
  folio render [flags] input.{html,md}
  folio serve [-addr :8095]
`

// listFlag collects a repeated string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	log := cfg.Logger(os.Stderr)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(cfg, log, os.Args[2:])
	case "serve":
		err = runServe(cfg, log, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("folio failed", "error", err)
		os.Exit(1)
	}
}

func runRender(cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var sheets, scripts listFlag
	fs.Var(&sheets, "css", "style sheet file (repeatable)")
	fs.Var(&scripts, "script", "JavaScript handler file (repeatable)")
	asJSON := fs.Bool("json", false, "print the page report as JSON")
	preview := fs.Bool("preview", false, "open the desktop preview")
	pngDir := fs.String("png", "", "write one PNG per page into this directory")
	scale := fs.Float64("scale", 1, "scale of PNG output")
	width := fs.Float64("width", cfg.PageWidth, "default page width in px")
	height := fs.Float64("height", cfg.PageHeight, "default page height in px")
	margin := fs.Float64("margin", cfg.PageMargin, "default page margin in px")
	maxPages := fs.Int("max-pages", cfg.MaxPages, "page limit")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("render needs exactly one input file")
	}

	input := fs.Arg(0)
	format, err := pipeline.FormatFor(input)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	job := pipeline.Job{
		Source: source,
		Format: format,
		Options: paged.Options{
			Width: *width, Height: *height, Margin: *margin, MaxPages: *maxPages,
		},
	}
	for _, name := range sheets {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		job.Stylesheets = append(job.Stylesheets, string(data))
	}
	for _, name := range scripts {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		job.Scripts = append(job.Scripts, pipeline.Script{Name: filepath.Base(name), Code: string(data)})
	}

	res, err := pipeline.Run(context.Background(), job, log)
	if err != nil {
		return err
	}

	if *pngDir != "" {
		if err := writePNGs(res, *pngDir, *scale); err != nil {
			return err
		}
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Book.Report()); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, res.Book)
	}
	if *preview {
		ui.NewPreview(filepath.Base(input), res.Book, res.Engine).Run()
	}
	return nil
}

func printReport(w io.Writer, book *paged.Book) {
	for _, r := range book.Report() {
		kind := ""
		if r.Continuation {
			kind = " (continued)"
		}
		fmt.Fprintf(w, "page %d %s%s: calls %v, footnotes %v, footnote area %gpx\n",
			r.Number, r.Side, kind, r.Calls, r.Footnotes, r.ReservedHeight)
	}
}

func writePNGs(res *pipeline.Result, dir string, scale float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, c := range render.PaintBook(res.Engine, res.Book, scale) {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%03d.png", i+1)))
		if err != nil {
			return err
		}
		if err := c.WritePNG(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Addr, "listen address")
	fs.Parse(args)

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server.New(log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RenderTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting folio", "addr", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
