package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_liveboard._tcp"

const roomField = "room="

var ErrNoRelay = errors.New("no relay found on the local network")

// Relay is a relay announced on the LAN.
type Relay struct {
	Addr string // host:port
	Room string
}

// Advertise announces a relay on port for room until the server is shut down.
func Advertise(port int, room string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"LiveBoard", roomField + room}
	service, err := mdns.NewMDNSService(
		host,
		serviceType,
		"",
		"",
		port,
		[]net.IP{firstIPv4()},
		info,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for a relay serving room, or any relay when room is empty.
// It gives up after timeout with ErrNoRelay.
func Browse(ctx context.Context, room string, timeout time.Duration) (Relay, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan error, 1)
	go func() {
		done <- mdns.Query(&mdns.QueryParam{
			Service:     serviceType,
			Domain:      "local",
			Timeout:     timeout,
			Entries:     entries,
			DisableIPv6: true,
		})
	}()

	for {
		select {
		case e := <-entries:
			if r, ok := relayFromEntry(e); ok && (room == "" || r.Room == room) {
				return r, nil
			}
		case err := <-done:
			if err != nil {
				return Relay{}, fmt.Errorf("mdns query: %w", err)
			}
			return Relay{}, ErrNoRelay
		case <-ctx.Done():
			return Relay{}, ctx.Err()
		}
	}
}

func relayFromEntry(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	r := Relay{Addr: net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port))}
	for _, f := range e.InfoFields {
		if v, ok := strings.CutPrefix(f, roomField); ok {
			r.Room = v
		}
	}
	return r, true
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
