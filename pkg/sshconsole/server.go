// Package sshconsole serves device consoles over SSH. The login name selects
// the device: "ssh r1@host" opens the console of device r1. An interactive
// session is a line-edited console; an exec request runs a single command.
package sshconsole

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Server accepts SSH connections for the devices of one router.
type Server struct {
	router *router.Router
	config *ssh.ServerConfig
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// Config configures a Server.
type Config struct {
	HostKey ssh.Signer
	// Password required of every login; empty accepts any client.
	Password string
}

// New creates a server; call Serve or ListenAndServe to accept connections.
func New(r *router.Router, cfg Config) *Server {
	s := &Server{router: r, done: make(chan struct{})}
	sc := &ssh.ServerConfig{}
	if cfg.Password == "" {
		sc.NoClientAuth = true
		sc.NoClientAuthCallback = func(meta ssh.ConnMetadata) (*ssh.Permissions, error) {
			return nil, s.checkDevice(meta.User())
		}
	} else {
		sc.PasswordCallback = func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if subtle.ConstantTimeCompare(pass, []byte(cfg.Password)) != 1 {
				return nil, fmt.Errorf("password rejected for %s", meta.User())
			}
			return nil, s.checkDevice(meta.User())
		}
	}
	sc.AddHostKey(cfg.HostKey)
	s.config = sc
	return s
}

func (s *Server) checkDevice(id string) error {
	if s.router.Device(id) == nil {
		return fmt.Errorf("device %s: %w", id, util.ErrNotFound)
	}
	return nil
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ssh listen %s: %w", addr, err)
	}
	util.WithComponent("ssh").Infof("SSH consoles listening on %s", l.Addr())
	return s.Serve(l)
}

// Serve accepts connections on l until Close.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			util.WithComponent("ssh").WithError(err).Debug("accept failed")
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and waits for open sessions to end.
func (s *Server) Close() error {
	close(s.done)
	var err error
	s.mu.Lock()
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	conn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		util.WithComponent("ssh").WithError(err).Debugf("handshake with %s failed", nc.RemoteAddr())
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-closed:
		}
	}()

	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := nch.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go s.handleSession(conn, ch, requests)
	}
}

type execRequest struct {
	Command string
}

type exitStatus struct {
	Status uint32
}

func (s *Server) handleSession(conn *ssh.ServerConn, ch ssh.Channel, requests <-chan *ssh.Request) {
	defer s.wg.Done()
	defer ch.Close()

	device := conn.User()
	src := router.Source{Kind: audit.SourceSSH, User: device + "@" + conn.RemoteAddr().String(), Session: sessionID()}
	ctx := router.WithSource(context.Background(), src)
	log := util.WithDevice(device).WithField("session", src.Session)

	for req := range requests {
		switch req.Type {
		case "pty-req", "env", "window-change":
			req.Reply(true, nil)
		case "shell":
			req.Reply(true, nil)
			log.Debug("shell started")
			go ssh.DiscardRequests(requests)
			s.shell(ctx, device, ch)
			sendExit(ch, 0)
			return
		case "exec":
			var r execRequest
			if err := ssh.Unmarshal(req.Payload, &r); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go ssh.DiscardRequests(requests)
			status := s.exec(ctx, device, r.Command, ch)
			sendExit(ch, status)
			return
		default:
			req.Reply(false, nil)
		}
	}
}

func sendExit(ch ssh.Channel, status uint32) {
	ch.SendRequest("exit-status", false, ssh.Marshal(exitStatus{status}))
}

// exec runs the ';'-separated commands of line. The exit status is 1 when
// any command was rejected.
func (s *Server) exec(ctx context.Context, device, line string, w io.Writer) uint32 {
	var status uint32
	for _, cmd := range strings.Split(line, ";") {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		out, err := s.router.ExecuteCommand(ctx, device, cmd)
		if err != nil {
			fmt.Fprintf(w, "%% %v\r\n", err)
			return 1
		}
		if out == nil {
			return 1
		}
		for _, l := range out.Output {
			fmt.Fprintf(w, "%s\r\n", l)
		}
		if !out.Accepted {
			status = 1
		}
	}
	return status
}

func (s *Server) shell(ctx context.Context, device string, ch ssh.Channel) {
	d := s.router.Device(device)
	if d == nil {
		return
	}
	t := term.NewTerminal(ch, "")
	platform := strings.TrimSpace(d.Vendor + " " + d.Model)
	fmt.Fprintf(t, "Connected to %s (%s). Press Ctrl-D to disconnect.\n\n", d.Hostname, platform)

	for {
		t.SetPrompt(s.router.Prompt(device))
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		out, err := s.router.ExecuteCommand(ctx, device, line)
		if err != nil {
			fmt.Fprintf(t, "%% %v\n", err)
			continue
		}
		if out == nil {
			return
		}
		for _, l := range out.Output {
			fmt.Fprintln(t, l)
		}
	}
}

func sessionID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
