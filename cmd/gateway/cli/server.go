package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbgateway/gateway/internal/gateway"
	"github.com/dbgateway/gateway/internal/registry"
)

// newServerCmd groups the spec-shaped server descriptor registry
// (servers.json, registry.Registry) — distinct from `db`, which manages
// the teacher's own config.Store service bookkeeping.
func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "server",
		Aliases: []string{"servers"},
		Short:   "Manage gateway server descriptors",
		Long: `Add, list, remove, and test the server descriptors the gateway Session/
Connection layer dials (servers.json). Secrets are encrypted at rest.`,
	}

	cmd.AddCommand(newServerAddCmd())
	cmd.AddCommand(newServerListCmd())
	cmd.AddCommand(newServerRemoveCmd())
	cmd.AddCommand(newServerTestCmd())
	cmd.AddCommand(newServerPrepareCmd())

	return cmd
}

// newServerPrepareCmd migrates servers.json in place: every descriptor
// missing an id is assigned one, and every descriptor not yet Encrypted has
// its plaintext secrets encrypted. Safe to run against a document that's
// already fully prepared — it's a no-op in that case.
func newServerPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Migrate servers.json in place: assign ids, encrypt plaintext secrets",
		Long: `Normalizes every server descriptor in servers.json: assigns a fresh id to
any descriptor missing one, and encrypts any descriptor not yet marked
encrypted. Intended for a hand-authored or legacy document — descriptors
added through 'gateway server add' are already prepared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := openServerRegistry()
			if err := reg.Prepare(); err != nil {
				return fmt.Errorf("prepare servers.json: %w", err)
			}
			fmt.Println("servers.json prepared")
			return nil
		},
	}
}

func newServerAddCmd() *cobra.Command {
	var d registry.Descriptor

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a server descriptor",
		Example: `  gateway server add --name local-pg --client postgresql --host localhost --port 5432 --user app --password secret --database app
  gateway server add --name analytics --client cassandra --host node1 --port 9042 --database ks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !registry.IsValidClient(d.Client) {
				keys := make([]string, 0, len(registry.Clients))
				for k := range registry.Clients {
					keys = append(keys, k)
				}
				return fmt.Errorf("unsupported client %q; supported: %s", d.Client, strings.Join(keys, ", "))
			}
			reg := openServerRegistry()
			stored, err := reg.Add(d)
			if err != nil {
				return fmt.Errorf("add server: %w", err)
			}
			fmt.Printf("Added server %q (id=%s, client=%s)\n", stored.Name, stored.ID, stored.Client)
			return nil
		},
	}

	cmd.Flags().StringVar(&d.Name, "name", "", "Server name")
	cmd.Flags().StringVar(&d.Client, "client", "", "Dialect key (mysql, mariadb, postgresql, redshift, sqlserver, sqlite, cassandra)")
	cmd.Flags().StringVar(&d.Host, "host", "", "Host")
	cmd.Flags().IntVar(&d.Port, "port", 0, "Port")
	cmd.Flags().StringVar(&d.Database, "database", "", "Default database/keyspace")
	cmd.Flags().StringVar(&d.User, "user", "", "Username")
	cmd.Flags().StringVar(&d.Password, "password", "", "Password")
	cmd.Flags().BoolVar(&d.SSL, "ssl", false, "Require SSL/TLS")

	return cmd
}

func newServerListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List server descriptors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := openServerRegistry()
			servers, err := reg.GetAll()
			if err != nil {
				return fmt.Errorf("list servers: %w", err)
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(servers)
			}
			if len(servers) == 0 {
				fmt.Println("No servers configured. Use 'gateway server add' to add one.")
				return nil
			}
			fmt.Printf("%-36s %-20s %-12s %s\n", "ID", "NAME", "CLIENT", "HOST")
			for _, s := range servers {
				fmt.Printf("%-36s %-20s %-12s %s\n", s.ID, s.Name, s.Client, s.Host)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newServerRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a server descriptor",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := openServerRegistry()
			if err := reg.RemoveByID(args[0]); err != nil {
				return fmt.Errorf("remove server: %w", err)
			}
			fmt.Printf("Removed server %s\n", args[0])
			return nil
		},
	}
}

func newServerTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Connect to a server descriptor and report its engine version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverRegistry := openServerRegistry()
			gw := gateway.New(serverRegistry, newRegistry())

			builder, err := gw.CreateServer(args[0])
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			s, err := builder.Connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer s.End()

			conn, ok := s.DB(builder.Descriptor().Database)
			if !ok {
				return fmt.Errorf("connect: default connection missing after Connect")
			}
			version := conn.Version()
			fmt.Printf("OK — %s %s\n", builder.Descriptor().Client, version.Raw)
			return nil
		},
	}
}
