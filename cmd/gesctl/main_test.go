package main

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

// fakeDaemon binds a UDP socket and records one datagram, optionally
// answering with a canned reply.
type fakeDaemon struct {
	conn  *net.UDPConn
	got   chan []byte
	reply []byte
}

func startFakeDaemon(t *testing.T, reply []byte) *fakeDaemon {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("binding fake daemon: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	d := &fakeDaemon{conn: conn, got: make(chan []byte, 1), reply: reply}
	go func() {
		buf := make([]byte, maxDatagramSize)
		n, sender, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		d.got <- append([]byte(nil), buf[:n]...)
		if d.reply != nil {
			conn.WriteToUDP(d.reply, sender) //nolint:errcheck // Test helper
		}
	}()
	return d
}

func (d *fakeDaemon) port() int {
	return d.conn.LocalAddr().(*net.UDPAddr).Port
}

func (d *fakeDaemon) received(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-d.got:
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decoding sent datagram: %v", err)
		}
		return decoded
	case <-time.After(2 * time.Second):
		t.Fatal("fake daemon received nothing")
		return nil
	}
}

func TestSend_EncodesCommand(t *testing.T) {
	d := startFakeDaemon(t, nil)
	c := &client{host: "127.0.0.1", port: d.port()}

	until := int64(300)
	if err := c.send(payload{Command: "run", Until: &until}); err != nil {
		t.Fatalf("send() error = %v", err)
	}

	got := d.received(t)
	if got["command"] != "run" {
		t.Errorf("command = %v, want run", got["command"])
	}
	if got["until"] != float64(300) {
		t.Errorf("until = %v, want 300", got["until"])
	}
	if _, present := got["count"]; present {
		t.Error("count should be omitted when unset")
	}
}

func TestSendSpawn_ParsesReply(t *testing.T) {
	reply := []byte(`{"devices":[{"id":"a","codename":"tiddymun","serial_number":"S","mac_address":"30AEA40293BC","instance_name":"Device-93BC"}]}`)
	d := startFakeDaemon(t, reply)
	c := &client{host: "127.0.0.1", port: d.port()}

	count := 1
	got, err := c.sendSpawn(payload{Command: "spawn", Type: "valve", Count: &count})
	if err != nil {
		t.Fatalf("sendSpawn() error = %v", err)
	}

	if len(got.Devices) != 1 {
		t.Fatalf("reply has %d devices, want 1", len(got.Devices))
	}
	if got.Devices[0].InstanceName != "Device-93BC" {
		t.Errorf("InstanceName = %q, want Device-93BC", got.Devices[0].InstanceName)
	}

	sent := d.received(t)
	if sent["type"] != "valve" || sent["count"] != float64(1) {
		t.Errorf("sent datagram = %v, want spawn valve count 1", sent)
	}
}

func TestSendSpawn_ParsesReplyLargerThanCommandLimit(t *testing.T) {
	// Each metadata entry is a couple hundred bytes; a handful of
	// devices pushes the reply well past the 1024-byte command cap.
	var devices []deviceInfo
	for i := 0; i < 20; i++ {
		devices = append(devices, deviceInfo{
			ID:           "00000000-0000-0000-0000-0000000000" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Codename:     "tiddymun",
			SerialNumber: "GES4-XXXX-YYYY-ZZZZ",
			MACAddress:   "30AEA40293BC",
			InstanceName: "Device-93BC",
		})
	}
	reply, err := json.Marshal(spawnReply{Devices: devices})
	if err != nil {
		t.Fatalf("encoding reply: %v", err)
	}
	if len(reply) <= maxDatagramSize {
		t.Fatalf("test reply is %d bytes, need more than %d", len(reply), maxDatagramSize)
	}

	d := startFakeDaemon(t, reply)
	c := &client{host: "127.0.0.1", port: d.port()}

	count := 20
	got, err := c.sendSpawn(payload{Command: "spawn", Type: "valve", Count: &count})
	if err != nil {
		t.Fatalf("sendSpawn() error = %v", err)
	}
	if len(got.Devices) != 20 {
		t.Fatalf("reply has %d devices, want 20", len(got.Devices))
	}
}

func TestSendSpawn_TimesOutWithoutReply(t *testing.T) {
	d := startFakeDaemon(t, nil)
	c := &client{host: "127.0.0.1", port: d.port()}

	count := 1
	if _, err := c.sendSpawn(payload{Command: "spawn", Type: "valve", Count: &count}); err == nil {
		t.Fatal("sendSpawn() should time out when the daemon stays silent")
	}
}

// TestRootCmd_Structure verifies the command tree exposes the expected
// operator surface.
func TestRootCmd_Structure(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"spawn", "valve"},
		{"spawn", "leakdetector"},
		{"list", "devices"},
		{"simulation", "run"},
		{"simulation", "kill"},
		{"leakdetector", "pair"},
		{"leakdetector", "list"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}
