// Command assocrebuild reads a kernel associative array out of a core dump
// or a live process and writes a script that rebuilds it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brenns10/kernel-stuff/assocarray"
	"github.com/brenns10/kernel-stuff/config"
	"github.com/brenns10/kernel-stuff/corefile"
)

var (
	configPath  string
	verbose     bool
	symbolsPath string
	pid         int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assocrebuild",
	Short: "Rebuild a kernel assoc_array from foreign memory",
	Long: `assocrebuild walks a struct assoc_array in a kernel core dump or a live
process and emits a script that reconstructs the same trie: C statements for
a test harness, or a serialized op list.

ADDR is a hexadecimal address (0x optional). Anything else is looked up in
the symbol table given by --symbols.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		if cfg.Logging.Development {
			zc = zap.NewDevelopmentConfig()
		}
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		corefile.SetLogger(logger)
		assocarray.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "assocrebuild.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&symbolsPath, "symbols", "", "ELF file with a symbol table (e.g. vmlinux)")
	rootCmd.PersistentFlags().IntVar(&pid, "pid", 0, "Read a live process instead of a core file")

	constructCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default from config)")
	scriptCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	scriptCmd.Flags().StringVar(&formatName, "format", "", "Script format: json, yaml, or cbor (default from config)")
	replayCmd.Flags().StringVar(&formatName, "format", "", "Script format: json, yaml, or cbor (default from config)")

	rootCmd.AddCommand(constructCmd, scriptCmd, dumpCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
