// Package tunnel implements the SSH Tunnel Supervisor: an OS-assigned
// loopback listener that forwards connections through an SSH client dial,
// used to reach a database server only reachable via a bastion host.
package tunnel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config describes the bastion host and credentials a Tunnel dials
// through, and the remote address it forwards connections to once
// connected.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string
	Passphrase string

	KnownHostsPath string // empty disables strict host key checking

	RemoteHost string
	RemotePort int

	DialTimeout time.Duration
	KeepAlive   time.Duration
}

// Tunnel is one active SSH forwarding session: a loopback listener backed
// by an SSH client dial to Config.RemoteHost:RemotePort.
type Tunnel struct {
	cfg       Config
	logger    *slog.Logger
	sshClient *ssh.Client
	listener  net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	localPort int
	closed    bool

	errc chan error
}

// Start dials the SSH bastion, binds an OS-assigned loopback port, and
// begins forwarding connections in the background. The returned Tunnel is
// ready to use once Start returns; LocalAddr() names the loopback endpoint
// a database driver should dial instead of the real remote address.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Tunnel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RemoteHost == "" || cfg.RemotePort == 0 {
		return nil, fmt.Errorf("tunnel: remote host and port are required")
	}

	sshConfig, err := buildSSHConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("tunnel: build ssh config: %w", err)
	}

	sshAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	sshClient, err := ssh.Dial("tcp", sshAddr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("tunnel: dial ssh %s: %w", sshAddr, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("tunnel: bind local listener: %w", err)
	}

	tunnelCtx, cancel := context.WithCancel(ctx)
	t := &Tunnel{
		cfg:       cfg,
		logger:    logger,
		sshClient: sshClient,
		listener:  listener,
		ctx:       tunnelCtx,
		cancel:    cancel,
		localPort: listener.Addr().(*net.TCPAddr).Port,
		errc:      make(chan error, 16),
	}

	t.wg.Add(1)
	go t.acceptLoop()

	if cfg.KeepAlive > 0 {
		t.wg.Add(1)
		go t.keepAlive()
	}

	logger.Info("ssh tunnel established",
		"bastion", sshAddr,
		"remote", fmt.Sprintf("%s:%d", cfg.RemoteHost, cfg.RemotePort),
		"local_port", t.localPort)

	return t, nil
}

// LocalAddr returns the loopback address ("127.0.0.1:<port>") a client
// should connect to in order to reach Config.RemoteHost:RemotePort through
// this tunnel.
func (t *Tunnel) LocalAddr() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("127.0.0.1:%d", t.localPort)
}

// LocalPort returns the OS-assigned local port number.
func (t *Tunnel) LocalPort() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.localPort
}

// Errors returns a channel of asynchronous per-connection forwarding
// errors (best-effort, buffered, never closed until Close).
func (t *Tunnel) Errors() <-chan error {
	return t.errc
}

// Close stops accepting new connections, waits for in-flight forwarding
// goroutines to finish, and closes the SSH client. Close is idempotent.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.listener.Close()
	t.wg.Wait()
	err := t.sshClient.Close()
	close(t.errc)
	return err
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
				t.reportError(fmt.Errorf("tunnel: accept: %w", err))
				continue
			}
		}

		t.wg.Add(1)
		go t.forward(conn)
	}
}

func (t *Tunnel) forward(localConn net.Conn) {
	defer t.wg.Done()
	defer localConn.Close()

	remoteAddr := fmt.Sprintf("%s:%d", t.cfg.RemoteHost, t.cfg.RemotePort)
	remoteConn, err := t.sshClient.Dial("tcp", remoteAddr)
	if err != nil {
		t.reportError(fmt.Errorf("tunnel: dial remote %s: %w", remoteAddr, err))
		return
	}
	defer remoteConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(remoteConn, localConn)
	}()
	go func() {
		defer wg.Done()
		io.Copy(localConn, remoteConn)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-t.ctx.Done():
	}
}

func (t *Tunnel) keepAlive() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := t.sshClient.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				t.reportError(fmt.Errorf("tunnel: keepalive: %w", err))
			}
		}
	}
}

func (t *Tunnel) reportError(err error) {
	select {
	case t.errc <- err:
	default:
		t.logger.Warn("tunnel error channel full, dropping error", "error", err)
	}
}

func buildSSHConfig(cfg Config) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	switch {
	case cfg.PrivateKey != "":
		var signer ssh.Signer
		var err error
		if cfg.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(cfg.PrivateKey), []byte(cfg.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	case cfg.Password != "":
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	default:
		return nil, fmt.Errorf("one of password or privateKey is required")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if cfg.KnownHostsPath != "" {
		callback, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", cfg.KnownHostsPath, err)
		}
		hostKeyCallback = callback
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}
