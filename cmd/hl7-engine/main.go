// Command hl7-engine runs the HL7 v2 listener and API, and offers offline
// tools for parsing, validating and sending messages.
package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hl7engine/internal/config"
)

const serviceVersion = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hl7-engine",
		Short:        "HL7 v2 message engine",
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(parseCmd())
	cmd.AddCommand(getCmd())
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(sendCmd())
	cmd.AddCommand(schemaCmd())
	cmd.AddCommand(tokenCmd())
	return cmd
}

// newLogger writes JSON to out, or human readable lines in development.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	if level, err := cfg.Level(); err == nil {
		logger = logger.Level(level)
	}
	return logger
}

// readInput returns the contents of path, or stdin for "-" or no path.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
