package server

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unknownrunes/rune-vm/parser"
	"github.com/unknownrunes/rune-vm/vm"
)

func TestServerRunsProgramPerConnection(t *testing.T) {
	img, errs := parser.Assemble(strings.NewReader(`
		MOV RA,42
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`))
	require.Empty(t, errs)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	srv := &Server{
		Host:           host,
		Port:           port,
		MaxConnections: 4,
		Program:        img,
		VMConfig:       vm.DefaultConfig(),
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(conn)
		}
	}()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, _ := bufio.NewReader(conn).Read(buf)
	require.Contains(t, string(buf[:n]), "42")
}

func TestServerRejectsBeyondCapacity(t *testing.T) {
	img, errs := parser.Assemble(strings.NewReader(`HALT`))
	require.Empty(t, errs)

	srv := &Server{MaxConnections: 1, Program: img, VMConfig: vm.DefaultConfig()}

	server, client := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	srv.active = 1 // simulate one connection already in flight
	go func() {
		srv.handleConn(server)
		close(done)
	}()

	buf := make([]byte, 1)
	_, err := client.Read(buf)
	require.Error(t, err) // rejected connection is closed immediately
	<-done
}
