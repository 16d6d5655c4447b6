package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// serveRPC runs a one-shot fake API server that records the request and
// answers with the given raw bytes.
func serveRPC(t *testing.T, response []byte) (host string, port int, got *[]byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	got = new([]byte)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 512)
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _ := conn.Read(buf)
		*got = buf[:n]

		_, _ = conn.Write(response)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, got
}

func TestTCPClientSend(t *testing.T) {
	response := []byte(`{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"GHS 5s":95000}]}` + "\x00")
	host, port, got := serveRPC(t, response)

	c := NewTCPClient(host, WithRPCPort(port), WithRPCTimeout(2*time.Second))
	data, err := c.Send(context.Background(), "summary")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var req map[string]string
	if err := json.Unmarshal(*got, &req); err != nil {
		t.Fatalf("request not JSON: %v (%q)", err, *got)
	}
	if req["command"] != "summary" {
		t.Errorf("command = %q, want summary", req["command"])
	}

	if _, ok := data["SUMMARY"]; !ok {
		t.Errorf("response missing SUMMARY: %v", data)
	}
}

func TestTCPClientRepairsBrokenStatsJSON(t *testing.T) {
	// bmminer's stats response concatenates two objects inside the
	// STATS array without a comma.
	response := []byte(`{"STATS":[{"BMMiner":"2.0.0"}{"chain_acn1":63}]}` + "\x00")
	fixed := strings.Replace(string(response), `"}{"`, `"},{"`, 1)
	if fixed == string(response) {
		t.Fatal("test fixture does not contain the broken seam")
	}

	host, port, _ := serveRPC(t, response)
	c := NewTCPClient(host, WithRPCPort(port), WithRPCTimeout(2*time.Second))

	data, err := c.Send(context.Background(), "stats")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	stats, ok := data["STATS"].([]any)
	if !ok || len(stats) != 2 {
		t.Fatalf("STATS = %v, want 2 repaired records", data["STATS"])
	}
}

func TestTCPClientEmptyResponse(t *testing.T) {
	host, port, _ := serveRPC(t, []byte("\x00"))
	c := NewTCPClient(host, WithRPCPort(port), WithRPCTimeout(2*time.Second))

	_, err := c.Send(context.Background(), "summary")
	if err == nil {
		t.Fatal("Send with empty response succeeded, want error")
	}
	if !IsTransport(err) {
		t.Errorf("error %v is not a transport error", err)
	}
}

func TestTCPClientConnectionRefused(t *testing.T) {
	// Grab a port and close it again so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewTCPClient("127.0.0.1", WithRPCPort(port), WithRPCTimeout(time.Second))
	_, err = c.Send(context.Background(), "summary")
	if err == nil {
		t.Fatal("Send to closed port succeeded, want error")
	}

	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %T, want *Error", err)
	}
	if te.Channel != "rpc" || te.Command != "summary" {
		t.Errorf("error tags = %s/%s, want rpc/summary", te.Channel, te.Command)
	}
}

func TestDecodeRPCResponse(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"ok":1}`, false},
		{"nul terminated", `{"ok":1}` + "\x00", false},
		{"trailing whitespace", `{"ok":1}` + "\n\x00", false},
		{"empty", "\x00", true},
		{"garbage", "not json", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeRPCResponse([]byte(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Errorf("decodeRPCResponse(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
		})
	}
}
