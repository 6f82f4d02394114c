package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// APIClient talks to a running "proxycfg serve".
type APIClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Out     io.Writer
}

// NewAPIClient creates a new API client writing to stdout.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Out:     os.Stdout,
	}
}

// NewCtlCommand creates the commands that query a running lookup service.
func NewCtlCommand() *cobra.Command {
	var apiURL string
	var apiToken string

	newClient := func(cmd *cobra.Command) *APIClient {
		c := NewAPIClient(apiURL, apiToken)
		c.Out = cmd.OutOrStdout()
		return c
	}

	root := &cobra.Command{
		Use:   "ctl",
		Short: "Query a running proxycfg lookup service",
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:8089", "Lookup service URL")
	root.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("PROXYCFG_TOKEN"), "API token (default $PROXYCFG_TOKEN)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(cmd).ShowStatus()
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(cmd).CheckHealth()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the configuration the service resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(cmd).ShowConfig()
		},
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup URL...",
		Short: "Ask the service which proxy is used for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(cmd).Lookup(args)
		},
	}

	root.AddCommand(statusCmd, healthCmd, configCmd, lookupCmd)
	return root
}

func (c *APIClient) doRequest(method, path string, body io.Reader) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	// Read the body before the context is cancelled.
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

// getJSON decodes the response into v. Statuses in okStatuses other than
// 200 are decoded too.
func (c *APIClient) getJSON(path string, v interface{}, okStatuses ...int) error {
	resp, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	for _, s := range okStatuses {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best effort read for error message
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// ShowStatus displays the service status.
func (c *APIClient) ShowStatus() error {
	var status map[string]interface{}
	if err := c.getJSON("/api/v1/status", &status); err != nil {
		return err
	}

	fmt.Fprintf(c.Out, "Status: %v\n", status["status"])
	fmt.Fprintf(c.Out, "Version: %v\n", status["version"])
	fmt.Fprintf(c.Out, "Uptime: %v\n", status["uptime"])
	fmt.Fprintf(c.Out, "Sources: %v\n", status["sources"])
	if resolved, _ := status["resolved"].(bool); resolved {
		fmt.Fprintf(c.Out, "Resolved from: %v\n", status["source"])
	} else {
		fmt.Fprintf(c.Out, "Not resolved: %v\n", status["error"])
	}
	if lookups, ok := status["lookups"].(float64); ok {
		fmt.Fprintf(c.Out, "Recent lookups: %.0f\n", lookups)
	}

	return nil
}

// CheckHealth reports whether the service answers its health check.
func (c *APIClient) CheckHealth() error {
	var health map[string]interface{}
	if err := c.getJSON("/api/v1/health", &health); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Health: %v\n", health["status"])
	return nil
}

// ShowConfig prints the configuration resolved by the service.
func (c *APIClient) ShowConfig() error {
	var cfg map[string]interface{}
	if err := c.getJSON("/api/v1/config", &cfg); err != nil {
		return err
	}

	data, _ := json.MarshalIndent(cfg, "", "  ") //nolint:errcheck // plain map
	fmt.Fprintln(c.Out, string(data))
	return nil
}

// Lookup asks the service about every URL and prints a table.
func (c *APIClient) Lookup(rawURLs []string) error {
	w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tOUTCOME\tPROXY\tSOURCE")

	failed := false
	for _, raw := range rawURLs {
		var result map[string]interface{}
		if err := c.getJSON("/api/v1/proxy?url="+url.QueryEscape(raw), &result, http.StatusNotFound, http.StatusBadRequest); err != nil {
			return err
		}
		outcome := result["outcome"]
		if e, ok := result["error"]; ok {
			outcome = e
			failed = true
		}
		proxy := result["proxy"]
		if proxy == nil {
			proxy = "DIRECT"
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", raw, outcome, proxy, result["source"])
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if failed {
		return errLookupsFailed
	}
	return nil
}
