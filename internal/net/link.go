package net

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const Scheme = "liveboard"

var ErrBadLink = errors.New("bad liveboard link")

// Link points a viewer at a relay and a room.
type Link struct {
	Host string
	Port int
	Room string
}

func (l Link) Addr() string { return net.JoinHostPort(l.Host, strconv.Itoa(l.Port)) }

// String renders liveboard://host:port/room.
func (l Link) String() string {
	u := url.URL{Scheme: Scheme, Host: l.Addr(), Path: "/" + l.Room}
	return u.String()
}

// ShareLink builds the link a host hands out for its room.
func ShareLink(host string, port int, room string) string {
	return Link{Host: host, Port: port, Room: room}.String()
}

// IsLink reports whether arg looks like a share link rather than a command.
func IsLink(arg string) bool { return strings.HasPrefix(arg, Scheme+"://") }

func ParseLink(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	if u.Scheme != Scheme {
		return Link{}, fmt.Errorf("%w: scheme %q", ErrBadLink, u.Scheme)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Link{}, fmt.Errorf("%w: port %q", ErrBadLink, portStr)
	}
	room := strings.Trim(u.Path, "/")
	if room == "" || strings.Contains(room, "/") {
		return Link{}, fmt.Errorf("%w: room %q", ErrBadLink, room)
	}
	return Link{Host: host, Port: port, Room: room}, nil
}
