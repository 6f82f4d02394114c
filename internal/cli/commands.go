// Package cli provides the proxycfg query commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

// Source yields the current proxy configuration.
type Source interface {
	Resolve() (*sysproxy.Config, error)
}

// Options wires the commands to the loaded configuration. Both functions
// are called at run time, after the root command has parsed its flags.
type Options struct {
	Source             func() (Source, error)
	MissingSchemeError func() bool
}

var errLookupsFailed = errors.New("one or more lookups failed")

// NewShowCommand prints the resolved proxy configuration.
func NewShowCommand(opts Options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the system proxy configuration",
		Long: `Resolve the proxy configuration from the platform's sources and print it.

Sources are tried in order (environment variables first) and the first one
that yields a configuration wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.Source()
			if err != nil {
				return err
			}
			cfg, err := src.Resolve()
			if err != nil {
				return fmt.Errorf("resolve proxy configuration: %w", err)
			}
			return writeSettings(cmd.OutOrStdout(), format, cfg.Settings())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

// LookupResult is the outcome of one lookup.
type LookupResult struct {
	sysproxy.Decision `yaml:",inline"`

	URL   string `json:"url" yaml:"url"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewLookupCommand decides, per URL, whether and through which proxy it
// would be fetched.
func NewLookupCommand(opts Options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "lookup URL...",
		Short: "Show which proxy is used for each URL",
		Example: `  proxycfg lookup https://example.com
  proxycfg lookup -f json http://localhost:8080 ftp://files.example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.Source()
			if err != nil {
				return err
			}
			cfg, err := src.Resolve()
			if err != nil {
				return fmt.Errorf("resolve proxy configuration: %w", err)
			}

			strict := opts.MissingSchemeError != nil && opts.MissingSchemeError()
			results, failed := Lookup(cfg, args, strict)
			if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
				return err
			}
			if failed {
				return errLookupsFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

// Lookup decides every raw URL under cfg. With strict set, a URL whose
// scheme has no proxy is reported as an error. failed reports whether any
// URL produced an error.
func Lookup(cfg *sysproxy.Config, rawURLs []string, strict bool) (results []LookupResult, failed bool) {
	results = make([]LookupResult, 0, len(rawURLs))
	for _, raw := range rawURLs {
		result := LookupResult{URL: raw}

		target, err := sysproxy.ParseTarget(raw)
		if err != nil {
			result.Error = err.Error()
			failed = true
			results = append(results, result)
			continue
		}

		result.Decision = sysproxy.Decide(cfg, target)
		if strict && result.Outcome == sysproxy.OutcomeNoProxyForScheme {
			result.Error = result.Err().Error()
			failed = true
		}
		results = append(results, result)
	}
	return results, failed
}

func writeSettings(w io.Writer, format string, s sysproxy.Settings) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, s)
	case "yaml":
		return yaml.NewEncoder(w).Encode(s)
	case "text", "":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", s.Source)
	if len(s.Proxies) == 0 {
		fmt.Fprintln(tw, "Proxies:\tnone")
	} else {
		fmt.Fprintln(tw, "Proxies:\t")
		schemes := make([]string, 0, len(s.Proxies))
		for scheme := range s.Proxies {
			schemes = append(schemes, scheme)
		}
		slices.Sort(schemes)
		for _, scheme := range schemes {
			fmt.Fprintf(tw, "  %s\t%s\n", scheme, s.Proxies[scheme])
		}
	}
	whitelist := "none"
	if len(s.Whitelist) > 0 {
		whitelist = strings.Join(s.Whitelist, ", ")
	}
	fmt.Fprintf(tw, "Bypass:\t%s\n", whitelist)
	fmt.Fprintf(tw, "Bypass simple hosts:\t%t\n", s.ExcludeSimple)
	return tw.Flush()
}

func writeResults(w io.Writer, format string, results []LookupResult) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, results)
	case "yaml":
		return yaml.NewEncoder(w).Encode(results)
	case "text", "":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tROUTE\tREASON")
	for _, r := range results {
		route, reason := "DIRECT", ""
		switch {
		case r.Error != "":
			route, reason = "ERROR", r.Error
		case r.Outcome == sysproxy.OutcomeProxy:
			route = r.Proxy
		case r.Outcome == sysproxy.OutcomeNoProxyNeeded:
			reason = "bypassed"
		case r.Outcome == sysproxy.OutcomeNoProxyForScheme:
			reason = fmt.Sprintf("no proxy for %s", r.Scheme)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.URL, route, reason)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
