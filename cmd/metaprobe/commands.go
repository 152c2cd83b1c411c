package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/mcpserver"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/internal/pipeline"
	"github.com/On-Jun9/MetaProbe/internal/postproc"
	"github.com/On-Jun9/MetaProbe/internal/render"
	"github.com/On-Jun9/MetaProbe/internal/scanner"
	"github.com/On-Jun9/MetaProbe/internal/web"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// dirStorageID names the ad-hoc storage that --dir files are addressed through.
const dirStorageID = "metaprobe-cli"

func runExtract(cmd *cobra.Command, args []string) error {
	if len(files) == 0 && dir == "" {
		return errors.New("either --file or --dir is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reqs := make([]pipeline.Request, 0, len(files))
	for _, f := range files {
		reqs = append(reqs, pipeline.Request{Reference: f, Service: service, Authorized: true})
	}
	if dir != "" {
		scanned, err := dirRequests(ctx, cfg, dir, service)
		if err != nil {
			return err
		}
		reqs = append(reqs, scanned...)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no files supported by %s found", service)
	}

	p, logger := newPipeline(cfg)
	defer logger.Close()

	results, summary := p.ExtractBatch(ctx, reqs, cfg.Jobs)
	if err := printResults(cmd.OutOrStdout(), results, jsonOut); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d extractions failed", summary.Failed, summary.Total)
	}
	return nil
}

// dirRequests registers root as a local storage and returns one request per file the
// backend supports.
func dirRequests(ctx context.Context, cfg *config.Config, root, name string) ([]pipeline.Request, error) {
	svc, err := metadata.NewRegistry().Select(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	handles, err := scanner.New(svc.SupportedFileTypes()).Scan(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	cfg.Storages = append(cfg.Storages, config.Storage{
		ID:       dirStorageID,
		Driver:   config.StorageDriverLocal,
		BasePath: abs,
	})

	reqs := make([]pipeline.Request, 0, len(handles))
	for _, h := range handles {
		reqs = append(reqs, pipeline.Request{
			Reference:  "storage:" + dirStorageID + ":" + h.Reference,
			Service:    name,
			Authorized: true,
		})
	}
	return reqs, nil
}

func printResults(w io.Writer, results []types.ExtractionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Fprintf(w, "== %s (%s) ==\n", r.Reference, r.Service)
		if r.Metadata != nil && r.Metadata.Len() > 0 {
			fmt.Fprintln(w, render.Text(r.Metadata))
		}
		if !r.Success {
			fmt.Fprintf(w, "error: %s\n", r.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runServices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	statuses := metadata.NewRegistry().Availability(cmd.Context(), cfg)
	return printServices(cmd.OutOrStdout(), statuses, jsonOut)
}

func printServices(w io.Writer, statuses []types.ServiceStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tAVAILABLE\tDETAILS")
	for _, st := range statuses {
		details := st.Message
		if st.Available {
			details = fmt.Sprintf("%d file types", len(st.SupportedTypes))
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", st.Name, st.Available, details)
	}
	return tw.Flush()
}

func runDecode(cmd *cobra.Command, args []string) error {
	decoded, err := postproc.Apply(processor, value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), decoded)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.ListenAddr
	}

	p, logger := newPipeline(cfg)
	defer logger.Close()

	server := web.NewServer(p, cfg)
	server.SetVersion(appVersion)
	return server.Start(addr)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, logger := newPipeline(cfg)
	defer logger.Close()

	return mcpserver.New(p, appVersion).Serve()
}
