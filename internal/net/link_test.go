package net

import (
	"errors"
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestShareLinkRoundTrip(t *testing.T) {
	link := ShareLink("192.168.1.20", 8888, "team a")
	if link != "liveboard://192.168.1.20:8888/team%20a" {
		t.Fatalf("link = %q", link)
	}
	if !IsLink(link) {
		t.Fatal("IsLink = false")
	}
	got, err := ParseLink(link)
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	if got != (Link{Host: "192.168.1.20", Port: 8888, Room: "team a"}) {
		t.Fatalf("parsed = %+v", got)
	}
	if got.Addr() != "192.168.1.20:8888" {
		t.Fatalf("addr = %q", got.Addr())
	}
}

func TestParseLinkRejects(t *testing.T) {
	for _, raw := range []string{
		"http://host:1/room",
		"liveboard://host/room",
		"liveboard://host:0/room",
		"liveboard://host:abc/room",
		"liveboard://host:8888/",
		"liveboard://host:8888/a/b",
	} {
		if _, err := ParseLink(raw); !errors.Is(err, ErrBadLink) {
			t.Errorf("ParseLink(%q) err = %v", raw, err)
		}
	}
}

func TestRelayFromEntry(t *testing.T) {
	r, ok := relayFromEntry(&mdns.ServiceEntry{
		AddrV4:     net.IPv4(10, 0, 0, 5),
		Port:       8888,
		InfoFields: []string{"LiveBoard", "room=design"},
	})
	if !ok || r != (Relay{Addr: "10.0.0.5:8888", Room: "design"}) {
		t.Fatalf("relay = %+v ok=%v", r, ok)
	}

	if _, ok := relayFromEntry(&mdns.ServiceEntry{Port: 8888}); ok {
		t.Fatal("entry without address accepted")
	}
	if _, ok := relayFromEntry(nil); ok {
		t.Fatal("nil entry accepted")
	}
}

func TestOutgoingIP(t *testing.T) {
	if ip := net.ParseIP(OutgoingIP()); ip == nil {
		t.Fatal("not an IP")
	}
}
