// Command mcp-resources serves the built-in resource registry over stdio.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mcp-resources/config"
	"github.com/felixgeelhaar/mcp-resources/protocol"
)

type flags struct {
	configPath string
	logFile    string
	logLevel   string
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:          "mcp-resources",
		Short:        "MCP resource server over stdio",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f, stdin, stdout)
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config file (default: "+config.DefaultFile+" if present)")
	root.PersistentFlags().StringVar(&f.logFile, "log-file", "", "path to the append-only log file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC on stdin/stdout until EOF or interrupt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f, stdin, stdout)
		},
	}

	resourcesCmd := &cobra.Command{
		Use:   "resources",
		Short: "List the registered resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listResources(cmd, f)
		},
	}

	readCmd := &cobra.Command{
		Use:   "read <uri>",
		Short: "Print the content of one resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return readResource(cmd, f, args[0])
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (protocol %s)\n",
				cfg.Server.Name, cfg.Server.Version, protocol.MCPVersion)
			return nil
		},
	}

	root.AddCommand(serveCmd, resourcesCmd, readCmd, configCmd, versionCmd)
	return root
}

// loadConfig layers the command-line flags over config.Load.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func listResources(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	srv, _, err := buildServer(cfg, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(srv.Resources())
}

func readResource(cmd *cobra.Command, f *flags, uri string) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	srv, _, err := buildServer(cfg, nil)
	if err != nil {
		return err
	}
	content, err := srv.Registry().Read(cmd.Context(), uri)
	if err != nil {
		return fmt.Errorf("reading %s: %w", uri, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), content.Text)
	return nil
}
