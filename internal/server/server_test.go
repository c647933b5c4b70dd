package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"redisd/internal/keyspace"
)

func startTestServer(t *testing.T) net.Conn {
	t.Helper()

	ks := keyspace.New(nil)
	lookup := func(string) (string, bool) { return "", false }
	srv := New(ks, lookup, 0)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(conn)
		}
	}()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerPing(t *testing.T) {
	conn := startTestServer(t)
	conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))

	reply := make([]byte, 64)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(reply)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(reply[:n]) != "+PONG\r\n" {
		t.Fatalf("got %q", reply[:n])
	}
}

func TestServerSetGetOverTwoWrites(t *testing.T) {
	conn := startTestServer(t)
	reader := bufio.NewReader(conn)

	conn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, _ := reader.ReadString('\n')
	if line != "+OK\r\n" {
		t.Fatalf("got %q", line)
	}

	conn.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	header, _ := reader.ReadString('\n')
	if header != "$1\r\n" {
		t.Fatalf("got %q", header)
	}
	body, _ := reader.ReadString('\n')
	if body != "v\r\n" {
		t.Fatalf("got %q", body)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	conn := startTestServer(t)
	conn.Write([]byte("*1\r\n$3\r\nFOO\r\n"))

	reply := make([]byte, 64)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(reply)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(reply[:n]) != "-ERR unknown command\r\n" {
		t.Fatalf("got %q", reply[:n])
	}
}

func TestServerMultipleCommandsOneWrite(t *testing.T) {
	conn := startTestServer(t)
	conn.Write([]byte("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"))

	want := "+PONG\r\n+PONG\r\n"
	got := make([]byte, 0, len(want))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(got) < len(want) {
		buf := make([]byte, len(want)-len(got))
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != want {
		t.Fatalf("got %q", got)
	}
}
