// Package server exposes the Unknown Runes VM over a raw TCP socket: one
// VM per connection, the connection's own stream bound as stdin/stdout,
// isolated from every other connection.
package server

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync/atomic"

	"github.com/unknownrunes/rune-vm/vm"
)

var srvLog *log.Logger

func init() {
	if os.Getenv("RUNE_VM_DEBUG") != "" {
		srvLog = log.New(os.Stderr, "runesrv: ", log.Ltime|log.Lmicroseconds)
	} else {
		srvLog = log.New(io.Discard, "", 0)
	}
}

func debugLog(format string, args ...interface{}) {
	srvLog.Printf(format, args...)
}

// Server accepts connections and runs one VM instance per connection,
// loaded with the same program image each time.
type Server struct {
	Host           string
	Port           int
	MaxConnections int
	Program        []byte
	VMConfig       vm.Config

	active int64
}

// ListenAndServe binds the configured address and runs the accept loop
// until the process is terminated; it returns only if binding the address
// fails. Accept errors are logged and the loop continues. Connections
// beyond MaxConnections are accepted and immediately closed, matching a
// bounded-capacity front door rather than a blocking queue.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	defer ln.Close()

	fmt.Printf("[*] Listening on %s\n", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			debugLog("accept error: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	addr := conn.RemoteAddr()
	fmt.Printf("[+] Connection from %s\n", addr)

	if max := int64(s.MaxConnections); max > 0 && atomic.AddInt64(&s.active, 1) > max {
		atomic.AddInt64(&s.active, -1)
		fmt.Printf("[-] Rejected %s: at capacity\n", addr)
		conn.Close()
		return
	}
	defer atomic.AddInt64(&s.active, -1)
	defer func() {
		conn.Close()
		fmt.Printf("[-] Closed %s\n", addr)
	}()

	machine := vm.New(s.VMConfig, bufio.NewReader(conn), conn)
	if err := machine.LoadProgram(s.Program); err != nil {
		debugLog("%s: load program: %v", addr, err)
		return
	}

	if err := machine.Run(); err != nil {
		switch err.(type) {
		case *vm.Exit:
			// VM called the EXIT syscall; not an error worth logging loudly.
		default:
			debugLog("%s: run: %v", addr, err)
		}
	}
}
