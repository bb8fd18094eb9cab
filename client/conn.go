// Package client speaks the client side of the protocol: enough to read a
// server's list entry, log in offline, chat and stay connected.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"

	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/frame"
	"github.com/luma/lodestone/protocol"
)

const (
	readChunk      = 4096
	messageBufSize = 255

	nextStatus = 1
	nextLogin  = 2
)

// Clientbound packet types the client understands.
const (
	statusResponse = 0x00
	statusPong     = 0x01

	loginDisconnect     = 0x00
	loginEncryption     = 0x01
	loginSuccess        = 0x02
	loginSetCompression = 0x03

	playKeepAlive  = 0x00
	playChat       = 0x02
	playDisconnect = 0x40
)

// ErrEncryptionRequired is returned by Login when the server runs in online
// mode.
var ErrEncryptionRequired = errors.New("server requires an authenticated login")

// DisconnectError is a server refusing or dropping the client.
type DisconnectError struct {
	Reason string
}

func (e *DisconnectError) Error() string {
	return "disconnected: " + e.Reason
}

// Packet is one decoded packet.
type Packet struct {
	Type uint32
	Body []byte
}

// Status is a server list entry.
type Status struct {
	Version     string
	Protocol    int
	Online      int
	Max         int
	Description string

	// Favicon is the decoded PNG, nil when the server has none.
	Favicon []byte
}

// Profile is what the server confirmed at the end of login.
type Profile struct {
	UUID codec.UUID
	Name string
}

type Conn struct {
	conn net.Conn
	addr string

	buf        *codec.Buffer
	compressed bool
	threshold  int

	writeMu sync.Mutex

	messages chan string

	mu     sync.Mutex
	reason string

	log *zap.Logger
}

// Dial opens a connection to addr, a host:port pair.
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Conn{
		conn:      conn,
		addr:      addr,
		buf:       codec.NewBuffer(nil),
		threshold: frame.DefaultThreshold,
		messages:  make(chan string, messageBufSize),
		log:       log.With(zap.String("addr", addr)),
	}, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// Handshake announces the protocol version and the state to switch to.
func (c *Conn) Handshake(next uint32) error {
	host, port, err := splitHostPort(c.addr)
	if err != nil {
		return err
	}

	return c.WritePacket(protocol.HandshakeID, func(w *codec.Writer) {
		w.WriteVarUInt32(protocol.ProtocolVersion)
		w.WriteString(host)
		w.WriteUint16(port)
		w.WriteVarUInt32(next)
	})
}

func splitHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("bad port %q: %w", portStr, err)
	}

	return host, uint16(port), nil
}

// WritePacket frames a packet of type typ with the fields build writes.
func (c *Conn) WritePacket(typ uint32, build func(w *codec.Writer)) error {
	w := codec.NewWriter()
	w.WriteVarUInt32(typ)
	if build != nil {
		build(w)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, err := frame.Encode(w.Bytes(), c.compressed, c.threshold)
	if err != nil {
		return err
	}

	_, err = c.conn.Write(data)
	return err
}

// ReadPacket blocks until a whole packet arrived.
func (c *Conn) ReadPacket() (Packet, error) {
	chunk := make([]byte, readChunk)

	for {
		payload, err := frame.Decode(c.buf, c.compressed)
		if err == nil {
			payload = append([]byte(nil), payload...)
			c.buf.Commit()

			typ, body, err := frame.SplitType(payload)
			if err != nil {
				return Packet{}, err
			}

			return Packet{Type: typ, Body: body}, nil
		}

		if !errors.Is(err, codec.ErrTruncated) {
			return Packet{}, err
		}

		n, err := c.conn.Read(chunk)
		if n > 0 {
			_, _ = c.buf.Write(chunk[:n])
		}

		if err != nil {
			return Packet{}, err
		}
	}
}

// withContext applies the deadline of ctx to the socket until the
// returned func is called.
func (c *Conn) withContext(ctx context.Context) func() {
	deadline, ok := ctx.Deadline()
	if !ok {
		return func() {}
	}

	_ = c.conn.SetDeadline(deadline)
	return func() {
		_ = c.conn.SetDeadline(time.Time{})
	}
}

// Status reads the server list entry. The connection can only be used for
// Ping afterwards.
func (c *Conn) Status(ctx context.Context) (*Status, error) {
	defer c.withContext(ctx)()

	if err := c.Handshake(nextStatus); err != nil {
		return nil, err
	}

	if err := c.WritePacket(protocol.StatusRequestID, nil); err != nil {
		return nil, err
	}

	p, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}

	if p.Type != statusResponse {
		return nil, fmt.Errorf("unexpected packet 0x%02x in status", p.Type)
	}

	doc, err := codec.NewBuffer(p.Body).ReadString()
	if err != nil {
		return nil, err
	}

	return ParseStatus(doc)
}

// ParseStatus reads a status response document.
func ParseStatus(doc string) (*Status, error) {
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("status is not JSON: %q", doc)
	}

	v := gjson.Parse(doc)

	s := &Status{
		Version:     v.Get("version.name").String(),
		Protocol:    int(v.Get("version.protocol").Int()),
		Online:      int(v.Get("players.online").Int()),
		Max:         int(v.Get("players.max").Int()),
		Description: chat.Plain(v.Get("description").Raw),
	}

	if favicon := v.Get("favicon").String(); favicon != "" {
		u, err := dataurl.DecodeString(favicon)
		if err != nil {
			return nil, fmt.Errorf("bad favicon: %w", err)
		}
		s.Favicon = u.Data
	}

	return s, nil
}

// Ping measures one round trip. It must follow Status.
func (c *Conn) Ping(ctx context.Context) (time.Duration, error) {
	defer c.withContext(ctx)()

	start := time.Now()
	if err := c.WritePacket(protocol.StatusPingID, func(w *codec.Writer) {
		w.WriteInt64(start.UnixNano())
	}); err != nil {
		return 0, err
	}

	p, err := c.ReadPacket()
	if err != nil {
		return 0, err
	}

	if p.Type != statusPong {
		return 0, fmt.Errorf("unexpected packet 0x%02x in status", p.Type)
	}

	echo, err := codec.NewBuffer(p.Body).ReadInt64()
	if err != nil {
		return 0, err
	}

	if echo != start.UnixNano() {
		return 0, fmt.Errorf("pong %d does not match ping %d", echo, start.UnixNano())
	}

	return time.Since(start), nil
}

// Login logs in as name without authentication.
func (c *Conn) Login(ctx context.Context, name string) (Profile, error) {
	defer c.withContext(ctx)()

	if err := c.Handshake(nextLogin); err != nil {
		return Profile{}, err
	}

	if err := c.WritePacket(protocol.LoginStartID, func(w *codec.Writer) {
		w.WriteString(name)
	}); err != nil {
		return Profile{}, err
	}

	for {
		p, err := c.ReadPacket()
		if err != nil {
			return Profile{}, err
		}

		body := codec.NewBuffer(p.Body)

		switch p.Type {
		case loginSetCompression:
			threshold, err := body.ReadVarUInt32()
			if err != nil {
				return Profile{}, err
			}

			c.writeMu.Lock()
			c.compressed = true
			c.threshold = int(threshold)
			c.writeMu.Unlock()

		case loginSuccess:
			id, err := body.ReadString()
			if err != nil {
				return Profile{}, err
			}

			uuid, err := codec.ParseUUID(id)
			if err != nil {
				return Profile{}, err
			}

			confirmed, err := body.ReadString()
			if err != nil {
				return Profile{}, err
			}

			c.log.Info("Logged in", zap.String("name", confirmed), zap.Stringer("uuid", uuid))
			return Profile{UUID: uuid, Name: confirmed}, nil

		case loginDisconnect:
			reason, err := body.ReadString()
			if err != nil {
				return Profile{}, err
			}
			return Profile{}, &DisconnectError{Reason: chat.Plain(reason)}

		case loginEncryption:
			return Profile{}, ErrEncryptionRequired

		default:
			return Profile{}, fmt.Errorf("unexpected packet 0x%02x in login", p.Type)
		}
	}
}

// Chat sends a chat message or command.
func (c *Conn) Chat(msg string) error {
	return c.WritePacket(protocol.ChatMessageID, func(w *codec.Writer) {
		w.WriteString(msg)
	})
}

// Messages returns the chat received by Listen. It is closed when Listen
// returns.
func (c *Conn) Messages() <-chan string {
	return c.messages
}

// Reason is the disconnect reason the server sent, if any.
func (c *Conn) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reason
}

// Listen reads play packets after Login until ctx ends or the server
// drops the client. It answers keep-alives and forwards chat to Messages.
func (c *Conn) Listen(ctx context.Context) error {
	log := c.log.Named("readLoop")
	defer close(c.messages)

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			// unblocks the read below
			_ = c.conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	for {
		p, err := c.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		body := codec.NewBuffer(p.Body)

		switch p.Type {
		case playKeepAlive:
			id, err := body.ReadVarUInt32()
			if err != nil {
				return err
			}

			if err := c.WritePacket(protocol.KeepAliveID, func(w *codec.Writer) {
				w.WriteVarUInt32(id)
			}); err != nil {
				return err
			}

		case playChat:
			msg, err := body.ReadString()
			if err != nil {
				return err
			}

			select {
			case c.messages <- chat.Plain(msg):
			default:
				log.Warn("Dropping chat message, nobody is reading")
			}

		case playDisconnect:
			reason, err := body.ReadString()
			if err != nil {
				return err
			}

			c.mu.Lock()
			c.reason = chat.Plain(reason)
			c.mu.Unlock()

			return &DisconnectError{Reason: c.Reason()}
		}
	}
}

// Ping dials addr, reads its server list entry and measures the round
// trip.
func Ping(ctx context.Context, addr string, log *zap.Logger) (*Status, time.Duration, error) {
	c, err := Dial(ctx, addr, log)
	if err != nil {
		return nil, 0, err
	}
	defer c.Close()

	status, err := c.Status(ctx)
	if err != nil {
		return nil, 0, err
	}

	rtt, err := c.Ping(ctx)
	if err != nil {
		return status, 0, err
	}

	return status, rtt, nil
}
