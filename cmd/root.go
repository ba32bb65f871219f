package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/apk-dataset-generator/pkg/batch"
	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine/bridge"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

type generateFlags struct {
	sourceFile          string
	listFile            string
	androidJars         string
	permissionsMapping  string
	outputFolder        string
	callgraphAlg        string
	additionalClasspath string
	configPath          string
	exportCallGraph     bool
	newDataset          bool
	resume              bool
	verbose             bool
	label               int
	timeout             int
}

var flags generateFlags

var rootCmd = &cobra.Command{
	Use:   "apk-dataset-generator",
	Short: "Build malware classification datasets from Android applications",
	Long: `apk-dataset-generator analyzes Android applications with an external static
analysis engine and appends one feature row per application to a shared dataset:
declared permissions, reachable permission gated APIs, confirmed leak sinks,
payload entropy and manifest metadata. The filtered application call graph can
be exported as a Graphviz file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, &flags)
	},
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.sourceFile, "source-file", "i", "", "Android application to analyze")
	f.StringVarP(&flags.listFile, "list-file", "l", "", "File listing one application path per line")
	f.StringVarP(&flags.androidJars, "android-jars", "j", "android-platforms", "Android platforms directory")
	f.StringVarP(&flags.permissionsMapping, "permissions-mapping", "p", "axplorer/permissions", "Permission mapping directory")
	f.StringVarP(&flags.outputFolder, "output-folder", "o", home, "Output folder")
	f.StringVarP(&flags.callgraphAlg, "callgraph-alg", "c", "", "Call graph algorithm (AUTO, CHA, VTA, RTA, SPARK, GEOM)")
	f.StringVar(&flags.additionalClasspath, "additional-classpath", "", "Additional classpath entries separated by ':' or ';'")
	f.StringVar(&flags.configPath, "config", "", "Configuration file overriding the built-in defaults")
	f.BoolVarP(&flags.exportCallGraph, "export-callgraph", "e", false, "Export the filtered call graph as a .dot file")
	f.BoolVarP(&flags.newDataset, "new-dataset", "n", false, "Start a new dataset instead of appending")
	f.BoolVar(&flags.resume, "resume", false, "Skip applications already recorded in the dataset")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")
	f.IntVar(&flags.label, "label", 0, "Class label of the analyzed applications (0 benign, 1 malicious)")
	f.IntVarP(&flags.timeout, "timeout", "t", 0, "Analysis timeout in seconds, 0 for none")

	rootCmd.MarkFlagsMutuallyExclusive("source-file", "list-file")
	rootCmd.MarkFlagsOneRequired("source-file", "list-file")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (f *generateFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFromFile(f.configPath)
	}
	return config.DefaultConfig()
}

// options validates the flags and turns them into batch options
func (f *generateFlags) options(cfg *config.Config) (batch.Options, error) {
	var opts batch.Options

	switch {
	case f.sourceFile != "" && f.listFile != "":
		return opts, errors.New("--source-file and --list-file are mutually exclusive")
	case f.sourceFile != "":
		if !utils.FileExists(f.sourceFile) {
			return opts, fmt.Errorf("source file %s does not exist", f.sourceFile)
		}
	case f.listFile != "":
		if !utils.FileExists(f.listFile) {
			return opts, fmt.Errorf("list file %s does not exist", f.listFile)
		}
	default:
		return opts, errors.New("one of --source-file or --list-file is required")
	}

	if f.label != 0 && f.label != 1 {
		return opts, fmt.Errorf("label must be 0 or 1, got %d", f.label)
	}
	if f.timeout < 0 {
		return opts, fmt.Errorf("timeout must not be negative, got %d", f.timeout)
	}

	name := f.callgraphAlg
	if name == "" {
		name = cfg.Engine.DefaultAlgorithm
	}
	algorithm, err := engine.ParseAlgorithm(name)
	if err != nil {
		return opts, err
	}

	return batch.Options{
		OutputDir:           f.outputFolder,
		PermissionsDir:      f.permissionsMapping,
		PlatformDir:         f.androidJars,
		AdditionalClasspath: utils.ParseClasspath(f.additionalClasspath),
		Algorithm:           algorithm,
		Timeout:             time.Duration(f.timeout) * time.Second,
		Label:               f.label,
		ExportCallGraph:     f.exportCallGraph,
		NewDataset:          f.newDataset,
		Resume:              f.resume,
	}, nil
}

func runGenerate(cmd *cobra.Command, f *generateFlags) error {
	logger := utils.NewLogger(cmd.ErrOrStderr(), f.verbose)

	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	opts, err := f.options(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := utils.NewStore()
	paths := []string{f.sourceFile}
	if f.listFile != "" {
		if paths, err = batch.LoadList(ctx, store, f.listFile); err != nil {
			return err
		}
	}

	eng := bridge.New(cfg.Engine, store, logger)
	if err := eng.Available(); err != nil {
		return fmt.Errorf("analysis engine unavailable: %w", err)
	}

	bc, err := batch.NewBatchContext(ctx, cfg, opts, eng, store, logger)
	if err != nil {
		return err
	}
	defer bc.Close()

	logger.WithField("binaries", len(paths)).Infof("Writing dataset to %s", bc.Dataset.Path())
	runner := batch.NewRunner(bc, eng, bridge.NewManifestReader(cfg.Engine, logger), store, logger)
	summary := runner.Run(ctx, paths)

	printSummary(cmd.OutOrStdout(), summary)

	if f.sourceFile != "" && summary.Failed > 0 {
		return summary.Failures[0].Err
	}
	return ctx.Err()
}
