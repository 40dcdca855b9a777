package dns

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestLookupIPLiteral(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "::1"} {
		ip, err := Lookup(context.Background(), host)
		if err != nil || ip != host {
			t.Errorf("Lookup(%q) = %q, %v", host, ip, err)
		}
	}
}

func TestLookupLocalhost(t *testing.T) {
	ip, err := Lookup(context.Background(), "localhost")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !net.ParseIP(ip).IsLoopback() {
		t.Errorf("localhost resolved to %s", ip)
	}
}

func TestDialContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
		close(accepted)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	conn.Close()
	<-accepted
}

func TestDialContextBadAddress(t *testing.T) {
	if _, err := DialContext(context.Background(), "tcp", "no-port"); err == nil {
		t.Error("DialContext accepted an address without a port")
	}
}

func TestTrimBrackets(t *testing.T) {
	if got := trimBrackets("[2606:4700:4700::1111]"); got != "2606:4700:4700::1111" {
		t.Errorf("trimBrackets = %q", got)
	}
	if got := trimBrackets("1.1.1.1"); got != "1.1.1.1" {
		t.Errorf("trimBrackets = %q", got)
	}
}
