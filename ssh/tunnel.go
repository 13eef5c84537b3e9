// Package ssh forwards a local port to the database server through
// a bastion host, for shops whose SQL Server only listens on a LAN.
//
// Design decisions:
//   - Uses golang.org/x/crypto/ssh for the SSH client.
//   - Binds 127.0.0.1:0 so the kernel picks a free port.
//   - Host keys are checked against a known_hosts file when one is
//     configured; otherwise any key is accepted and a warning is logged.
//   - Only key-based authentication is supported (with optional passphrase).
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Addr is the local end of the forward.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Tunnel manages one SSH local port forward.
type Tunnel struct {
	clientCfg *ssh.ClientConfig
	bastion   string // e.g. "bastion:22"
	target    string // e.g. "sqlserver:1433"

	client   *ssh.Client
	listener net.Listener
	wg       sync.WaitGroup
	once     sync.Once
	closed   chan struct{}
}

// NewTunnel prepares a forward to targetHost:targetPort (does not connect yet).
func NewTunnel(cfg config.SSHConfig, targetHost string, targetPort int) (*Tunnel, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return &Tunnel{
		clientCfg: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKey,
		},
		bastion: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		target:  net.JoinHostPort(targetHost, strconv.Itoa(targetPort)),
		closed:  make(chan struct{}),
	}, nil
}

// Start dials the bastion and begins accepting local connections.
// The returned address is what the database driver should connect to.
// The tunnel stops when ctx is cancelled.
func (t *Tunnel) Start(ctx context.Context) (Addr, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.bastion)
	if err != nil {
		return Addr{}, fmt.Errorf("ssh dial %s: %w", t.bastion, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, t.bastion, t.clientCfg)
	if err != nil {
		conn.Close()
		return Addr{}, fmt.Errorf("ssh handshake %s: %w", t.bastion, err)
	}
	t.client = ssh.NewClient(c, chans, reqs)

	t.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.client.Close()
		return Addr{}, fmt.Errorf("local listen: %w", err)
	}

	local := Addr{Host: "127.0.0.1", Port: t.listener.Addr().(*net.TCPAddr).Port}
	applog.Event("ssh", "tunnel up", "local", local.String(), "bastion", t.bastion, "target", t.target)

	t.wg.Add(1)
	go t.serve()
	go func() {
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.closed:
		}
	}()
	return local, nil
}

// Stop closes the listener, waits for open forwards and drops the SSH session.
func (t *Tunnel) Stop() {
	t.once.Do(func() {
		close(t.closed)
		if t.listener != nil {
			t.listener.Close()
		}
		t.wg.Wait()
		if t.client != nil {
			t.client.Close()
		}
		applog.Event("ssh", "tunnel down", "target", t.target)
	})
}

func (t *Tunnel) serve() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		t.wg.Add(1)
		go t.pipe(local)
	}
}

func (t *Tunnel) pipe(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.target)
	if err != nil {
		applog.Warn("ssh forward failed", "target", t.target, "err", err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

func authMethods(cfg config.SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("no SSH key configured (set SSH_KEY)")
	}
	pem, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyPath, err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func hostKeyCallback(cfg config.SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsPath == "" {
		applog.Warn("ssh host key not verified", "host", cfg.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(cfg.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return cb, nil
}
