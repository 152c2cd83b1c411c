package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/log"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/internal/pipeline"
	"github.com/On-Jun9/MetaProbe/internal/resolver"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

var (
	appVersion = "0.1.0"
	cfgFile    string
	files      []string
	dir        string
	service    string
	jsonOut    bool
	jobs       int
	processor  string
	value      string
	addr       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "metaprobe",
	Short: "Extract metadata from documents, images and videos",
	Long: `MetaProbe reads the metadata of a file through one of several backends
(pdfinfo, exiftool, tika, php, docconv) and prints it as a nested key/value tree.`,
	SilenceUsage: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract metadata from file references or a directory",
	RunE:  runExtract,
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the extraction backends and their availability",
	RunE:  runServices,
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Convert a raw value with a post-processor",
	RunE:  runDecode,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and HTTP API",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the extraction tools over MCP stdio",
	RunE:  runMCP,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), appVersion)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	extractCmd.Flags().StringSliceVarP(&files, "file", "f", nil, "file reference, e.g. storage:1:photo.jpg (repeatable)")
	extractCmd.Flags().StringVarP(&dir, "dir", "d", "", "extract every supported file under this directory")
	extractCmd.Flags().StringVarP(&service, "service", "s", string(types.BackendPHP), "backend: pdfinfo, exiftool, tika, php, docconv")
	extractCmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	extractCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of concurrent extractions (0=config)")

	servicesCmd.Flags().BoolVar(&jsonOut, "json", false, "print services as JSON")

	decodeCmd.Flags().StringVarP(&processor, "processor", "p", "", "processor, e.g. Gps::toDecimal")
	decodeCmd.Flags().StringVarP(&value, "value", "v", "", "raw value")
	_ = decodeCmd.MarkFlagRequired("processor")

	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP server address (default from config)")
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline wires the pipeline with a file logger. Console output goes to stderr so that
// stdout stays clean for results and the MCP protocol.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, *log.Logger) {
	logger, err := log.New(cfg.LogFile, cfg.LogJSON, !cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		logger = log.Discard()
	}
	logger.SetConsole(os.Stderr)

	return pipeline.New(cfg, metadata.NewRegistry(), resolver.New(cfg), logger), logger
}
