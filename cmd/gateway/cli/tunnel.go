package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbgateway/gateway/internal/registry"
	"github.com/dbgateway/gateway/internal/tunnel"
)

// newTunnelCmd groups standalone SSH tunnel inspection — useful for
// diagnosing a bastion reachability problem independently of whether the
// target database itself is up.
func newTunnelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Inspect and test SSH tunnels",
		Long:  "Start an SSH tunnel for a stored server descriptor standalone, without also dialing the database, to isolate bastion/tunnel failures from engine-level ones.",
	}

	cmd.AddCommand(newTunnelTestCmd())

	return cmd
}

func newTunnelTestCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test <server-id>",
		Short: "Open an SSH tunnel for a server descriptor and report its local port",
		Long:  "Starts the SSH tunnel configured on the named server descriptor, waits for it to come up, prints the loopback address a driver would dial through it, then closes it. Fails if the descriptor has no SSH configuration.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTunnelTest(args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Maximum time to wait for the tunnel to come up")
	return cmd
}

func runTunnelTest(serverID string, timeout time.Duration) error {
	reg := openServerRegistry()

	desc, err := reg.Get(serverID)
	if err != nil {
		return fmt.Errorf("get server %q: %w", serverID, err)
	}
	if desc.SSH == nil {
		return fmt.Errorf("server %q has no SSH configuration", serverID)
	}

	desc, err = reg.DecryptSecrets(desc)
	if err != nil {
		return fmt.Errorf("decrypt secrets: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	t, err := tunnel.Start(ctx, tunnelConfig(desc), nil)
	if err != nil {
		return fmt.Errorf("start tunnel: %w", err)
	}
	defer t.Close()

	fmt.Fprintf(os.Stdout, "OK — tunnel up, forwarding 127.0.0.1:%d -> %s:%d via %s\n",
		t.LocalPort(), desc.Host, desc.Port, desc.SSH.Host)
	return nil
}

func tunnelConfig(desc registry.Descriptor) tunnel.Config {
	ssh := desc.SSH
	return tunnel.Config{
		Host:       ssh.Host,
		Port:       ssh.Port,
		User:       ssh.User,
		Password:   ssh.Password,
		PrivateKey: ssh.PrivateKey,
		RemoteHost: desc.Host,
		RemotePort: desc.Port,
	}
}
