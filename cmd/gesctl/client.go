package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Wire limits shared with the daemon. Commands are capped at the
// daemon's read buffer; the spawn reply carries one metadata entry per
// device in a single datagram, so its buffer gets the full room a UDP
// payload allows.
const (
	maxDatagramSize = 1024
	maxReplySize    = 65507
	replyTimeout    = 2 * time.Second
)

// client sends control datagrams to a running daemon.
type client struct {
	host string
	port int
}

// payload is the JSON command envelope. Pointer fields are omitted when
// unset so the daemon can distinguish absent from zero.
type payload struct {
	Command         string `json:"command"`
	Type            string `json:"type,omitempty"`
	Count           *int   `json:"count,omitempty"`
	Until           *int64 `json:"until,omitempty"`
	ValveController string `json:"valve_controller,omitempty"`
}

// deviceInfo mirrors the daemon's spawn response entries.
type deviceInfo struct {
	ID           string `json:"id"`
	Codename     string `json:"codename"`
	SerialNumber string `json:"serial_number"`
	MACAddress   string `json:"mac_address"`
	InstanceName string `json:"instance_name"`
}

// spawnReply is the daemon's answer to a spawn command.
type spawnReply struct {
	Devices []deviceInfo `json:"devices"`
}

// send fires one command datagram at the daemon without waiting for a
// reply. Most commands are one-way.
func (c *client) send(p payload) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	return write(conn, p)
}

// sendSpawn sends a spawn command and waits for the daemon's device
// metadata response.
func (c *client) sendSpawn(p payload) (*spawnReply, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := write(conn, p); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(replyTimeout)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	buf := make([]byte, maxReplySize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("waiting for daemon reply: %w", err)
	}

	var reply spawnReply
	if err := json.Unmarshal(buf[:n], &reply); err != nil {
		return nil, fmt.Errorf("decoding daemon reply: %w", err)
	}
	return &reply, nil
}

// dial opens a connected UDP socket to the daemon.
func (c *client) dial() (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.host, c.port))
	if err != nil {
		return nil, fmt.Errorf("resolving daemon address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("reaching daemon at %s: %w", addr, err)
	}
	return conn, nil
}

// write encodes and sends one command on an open socket.
func write(conn *net.UDPConn, p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	if len(data) > maxDatagramSize {
		return fmt.Errorf("command exceeds %d byte datagram limit", maxDatagramSize)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("sending command: %w", err)
	}
	return nil
}
