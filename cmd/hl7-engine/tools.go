package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hl7engine/internal/config"
	"github.com/ehr/hl7engine/internal/platform/auth"
	"github.com/ehr/hl7engine/internal/platform/hl7v2"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/mllp"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/terser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
)

// errInvalid is returned by validate so the process exits non-zero.
var errInvalid = errors.New("message is not valid")

// addParserFlags registers the flags every offline tool shares.
func addParserFlags(cmd *cobra.Command) {
	cmd.Flags().String("default-version", "2.5", "HL7 version used when MSH-12 names an unknown version")
	cmd.Flags().Bool("strict-version", false, "Reject messages whose MSH-12 version has no tables")
	cmd.Flags().String("unexpected", "inline", "Unexpected segment policy: inline, root or fail")
	cmd.Flags().String("tables", "", "Directory of extra schema tables to load")
}

func registryFromFlags(cmd *cobra.Command) (*schema.Registry, error) {
	tables, _ := cmd.Flags().GetString("tables")
	if tables == "" {
		return schema.Default(), nil
	}
	registry, err := schema.NewRegistry(zerolog.Nop())
	if err != nil {
		return nil, err
	}
	if err := registry.LoadDir(tables); err != nil {
		return nil, fmt.Errorf("load tables %s: %w", tables, err)
	}
	return registry, nil
}

func parserFromFlags(cmd *cobra.Command) (*parser.Parser, error) {
	registry, err := registryFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	version, _ := cmd.Flags().GetString("default-version")
	strict, _ := cmd.Flags().GetBool("strict-version")
	policy, _ := cmd.Flags().GetString("unexpected")
	unexpected, err := parser.ParseUnexpectedSegments(policy)
	if err != nil {
		return nil, err
	}
	return parser.New(registry, parser.Options{
		DefaultVersion:     version,
		StrictVersion:      strict,
		UnexpectedSegments: unexpected,
		Logger:             zerolog.Nop(),
	}), nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

// parsedMessage is one entry of the parse command output.
type parsedMessage struct {
	Structure string     `json:"structure"`
	Version   string     `json:"version"`
	Tree      hl7v2.Node `json:"tree"`
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [FILE]",
		Short: "Parse ER7 messages and print their structure as JSON",
		Long:  "Parse reads a message or a batch file (FHS/BHS) from FILE or stdin and prints the structure tree.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parserFromFlags(cmd)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			batch, err := parser.SplitBatch(string(raw))
			if err != nil {
				return err
			}
			out := make([]parsedMessage, 0, len(batch.Messages))
			for i, text := range batch.Messages {
				msg, err := p.Parse(text)
				if err != nil {
					return fmt.Errorf("message %d: %w", i+1, err)
				}
				out = append(out, parsedMessage{
					Structure: msg.Structure(),
					Version:   msg.Version(),
					Tree:      hl7v2.Tree(msg),
				})
			}
			if len(out) == 1 {
				return writeJSON(cmd.OutOrStdout(), out[0])
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	addParserFlags(cmd)
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get FILE PATH...",
		Short: "Print the values at terser paths such as /PID-5-1 or /.OBX(1)-5",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parserFromFlags(cmd)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[:1])
			if err != nil {
				return err
			}
			msg, err := p.Parse(string(raw))
			if err != nil {
				return err
			}
			t := terser.New(msg)
			withPaths, _ := cmd.Flags().GetBool("with-paths")
			for _, path := range args[1:] {
				value, err := t.Get(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if withPaths {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, value)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
			}
			return nil
		},
	}
	addParserFlags(cmd)
	cmd.Flags().Bool("with-paths", false, "Prefix each value with its path")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a message against its structure and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parserFromFlags(cmd)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			msg, err := p.Parse(string(raw))
			if err != nil {
				return err
			}
			var opts validation.Options
			opts.SkipLength, _ = cmd.Flags().GetBool("skip-length")
			opts.SkipFormats, _ = cmd.Flags().GetBool("skip-formats")
			opts.AllowGeneric, _ = cmd.Flags().GetBool("allow-generic")
			report := validation.New(opts).Validate(msg)
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Valid {
				return errInvalid
			}
			return nil
		},
	}
	addParserFlags(cmd)
	cmd.Flags().Bool("skip-length", false, "Skip maximum length checks")
	cmd.Flags().Bool("skip-formats", false, "Skip primitive format checks")
	cmd.Flags().Bool("allow-generic", false, "Accept messages without a structure definition")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [FILE]",
		Short: "Send a message over MLLP and print the acknowledgment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			// Files written on Unix usually end segments with LF.
			text := strings.TrimRight(strings.ReplaceAll(strings.ReplaceAll(string(raw), "\r\n", "\r"), "\n", "\r"), "\r")

			client := mllp.NewClient(mllp.ClientConfig{
				Addr:        addr,
				DialTimeout: timeout,
				ReadTimeout: timeout,
			}, zerolog.Nop(), nil)
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ack, err := client.Send(ctx, []byte(text))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(string(ack), "\r", "\n"))

			code, ref, err := ackResult(string(ack))
			if err != nil {
				return fmt.Errorf("unreadable acknowledgment: %w", err)
			}
			if !hl7v2.AckCode(code).Accepted() {
				return fmt.Errorf("message %s rejected with %s", ref, code)
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "localhost:2575", "MLLP peer address")
	cmd.Flags().Duration("timeout", 30*time.Second, "Dial and acknowledgment timeout")
	return cmd
}

// ackResult reads MSA-1 and MSA-2 from an acknowledgment.
func ackResult(ack string) (code, controlID string, err error) {
	msg, err := parser.New(nil, parser.Options{Logger: zerolog.Nop()}).Parse(ack)
	if err != nil {
		return "", "", err
	}
	t := terser.New(msg)
	if code, err = t.Get("/MSA-1"); err != nil {
		return "", "", err
	}
	if controlID, err = t.Get("/MSA-2"); err != nil {
		return "", "", err
	}
	return code, controlID, nil
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the loaded HL7 schema tables",
	}
	cmd.PersistentFlags().String("tables", "", "Directory of extra schema tables to load")

	cmd.AddCommand(&cobra.Command{
		Use:   "versions",
		Short: "List the known HL7 versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := registryFromFlags(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", "VERSION", "EXTENDS")
			for _, id := range registry.Versions() {
				v, err := registry.Version(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", v.ID(), v.Extends())
			}
			return nil
		},
	})

	structures := &cobra.Command{
		Use:   "structures",
		Short: "List message structures and the events mapped to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := registryFromFlags(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("version")
			v, err := registry.Version(id)
			if err != nil {
				return err
			}
			byStructure := make(map[string][]string)
			for event, structure := range v.Events() {
				byStructure[structure] = append(byStructure[structure], event)
			}
			for _, s := range v.MessageStructures() {
				events := byStructure[s]
				sort.Strings(events)
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", s, strings.Join(events, " "))
			}
			return nil
		},
	}
	structures.Flags().String("version", "2.5", "HL7 version")
	cmd.AddCommand(structures)

	grammar := &cobra.Command{
		Use:   "grammar STRUCTURE",
		Short: "Print the grammar of a message structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := registryFromFlags(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("version")
			v, err := registry.Version(id)
			if err != nil {
				return err
			}
			g, ok := v.Grammar(args[0])
			if !ok {
				return fmt.Errorf("structure %s is not defined in version %s", args[0], id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), g)
			return nil
		},
	}
	grammar.Flags().String("version", "2.5", "HL7 version")
	cmd.AddCommand(grammar)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := auth.IssueToken([]byte(cfg.AuthSigningKey), auth.TokenRequest{
				Subject:  subject,
				Roles:    roles,
				Issuer:   cfg.AuthIssuer,
				Audience: cfg.AuthAudience,
				TTL:      ttl,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Token subject")
	cmd.Flags().StringSlice("role", []string{auth.RoleIntegration}, "Granted roles")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
