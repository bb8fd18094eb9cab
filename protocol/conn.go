package protocol

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/encryption"
	"github.com/luma/lodestone/frame"
	"github.com/luma/lodestone/internal/metrics"
)

// DefaultReceiveBuffer bounds the bytes buffered between two reads that do
// not yet form a complete frame.
const DefaultReceiveBuffer = 32 << 10

var (
	// ErrClosed is returned by writes after the connection was kicked or
	// closed.
	ErrClosed = errors.New("connection closed")

	// ErrBufferFull is returned when a client sends more unframed data
	// than the receive buffer holds.
	ErrBufferFull = errors.New("Packet buffer full")
)

// FatalError is a malformed stream. The connection has been kicked with
// Reason and moved to the errored state.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Transport carries the bytes of one connection. Write must not retain p
// and must not block on the network for long, Disconnect flushes what was
// written and then closes.
type Transport interface {
	io.Writer
	Disconnect() error
}

type Options struct {
	Transport Transport
	Handler   Handler

	// Authenticate turns on the encryption exchange and verification of
	// the player with Authenticator. Keys must be set when it is on.
	Authenticate  bool
	Keys          *auth.KeyPair
	Authenticator auth.Authenticator
	ServerID      string

	// Threshold is the compression threshold announced at the end of
	// login. Zero uses frame.DefaultThreshold.
	Threshold int

	// ReceiveBuffer bounds buffered unframed input. Zero uses
	// DefaultReceiveBuffer.
	ReceiveBuffer int

	RemoteAddr net.Addr
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	// Trace logs a hex dump of every packet at debug level.
	Trace bool
}

// Conn is the protocol state of one client connection.
//
// DataReceived must be called from a single goroutine, the inbound flow.
// The Send* methods may be called from any goroutine.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	transport Transport
	handler   Handler

	authenticate  bool
	keys          *auth.KeyPair
	authenticator auth.Authenticator
	serverID      string
	threshold     int

	state atomicState
	recv  *codec.Buffer

	// cipher is only initialized while writeMu is held
	cipher encryption.Layer

	// decryptPending is set when the cipher was enabled while handling a
	// packet, the rest of the receive buffer is still ciphertext.
	decryptPending bool

	writeMu sync.Mutex
	out     *codec.Writer

	mu       sync.Mutex
	name     string
	nonce    [4]byte
	profile  auth.Profile
	loggedIn bool

	// last dimension sent in JoinGame or Respawn
	dimension     int32
	dimensionSent bool

	closeOnce sync.Once

	remoteAddr net.Addr
	metrics    *metrics.Metrics
	log        *zap.Logger
	trace      bool
}

// NewConn returns a connection in the handshaking state. ctx bounds the
// lifetime of work started on behalf of the connection, such as the
// authentication request.
func NewConn(ctx context.Context, opts Options) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	if opts.Handler == nil {
		opts.Handler = BaseHandler{}
	}

	if opts.Authenticator == nil {
		opts.Authenticator = auth.Offline{}
	}

	if opts.Threshold <= 0 {
		opts.Threshold = frame.DefaultThreshold
	}

	if opts.ReceiveBuffer <= 0 {
		opts.ReceiveBuffer = DefaultReceiveBuffer
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	if opts.RemoteAddr != nil {
		log = log.With(zap.Stringer("remoteAddr", opts.RemoteAddr))
	}

	c := &Conn{
		ctx:           ctx,
		cancel:        cancel,
		transport:     opts.Transport,
		handler:       opts.Handler,
		authenticate:  opts.Authenticate,
		keys:          opts.Keys,
		authenticator: opts.Authenticator,
		serverID:      opts.ServerID,
		threshold:     opts.Threshold,
		recv:          codec.NewBoundedBuffer(opts.ReceiveBuffer),
		out:           codec.NewWriter(),
		remoteAddr:    opts.RemoteAddr,
		metrics:       opts.Metrics,
		log:           log,
		trace:         opts.Trace,
	}

	if _, err := rand.Read(c.nonce[:]); err != nil {
		log.Error("Failed to generate login nonce", zap.Error(err))
	}

	return c
}

// State returns the current protocol state.
func (c *Conn) State() State {
	return c.state.Load()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Context is cancelled once the connection is kicked or closed.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// Profile returns the identity of the player. ok is false until login has
// completed.
func (c *Conn) Profile() (p auth.Profile, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.profile, c.loggedIn
}

// Name is the name sent in LoginStart.
func (c *Conn) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.name
}

func (c *Conn) Log() *zap.Logger {
	return c.log
}

// DataReceived feeds one chunk of bytes read from the transport through
// the pipeline. Every complete frame is dispatched before it returns, an
// incomplete frame stays buffered for the next chunk.
//
// A *FatalError is returned when the stream could not be framed. The client
// has then been kicked.
func (c *Conn) DataReceived(p []byte) error {
	c.metrics.BytesReceived(len(p))

	if c.State() == StateErrored {
		return nil
	}

	if c.trace {
		c.log.Debug("Received data", zap.Int("length", len(p)), zap.Binary("data", p))
	}

	if _, err := c.recv.Write(c.cipher.Decrypt(p)); err != nil {
		c.Kick(ErrBufferFull.Error())
		return &FatalError{Reason: ErrBufferFull.Error(), Err: err}
	}

	for {
		state := c.State()
		if state == StateErrored {
			// nothing received from here on is ever decoded
			c.recv.ReadAll()
			c.recv.Commit()
			return nil
		}

		payload, err := frame.Decode(c.recv, state.compressed())
		if errors.Is(err, codec.ErrTruncated) {
			return nil
		}

		if err != nil {
			reason := fatalReason(err)

			c.log.Warn("Malformed frame", zap.Stringer("state", state), zap.Error(err))
			c.metrics.PacketError("frame")
			c.Kick(reason)

			return &FatalError{Reason: reason, Err: err}
		}

		c.metrics.FrameReceived(state.String())

		typ, body, err := frame.SplitType(payload)
		if err != nil {
			c.recv.Commit()
			c.log.Warn("Received an empty packet", zap.Stringer("state", state), zap.Error(err))
			c.metrics.PacketError("length")
			c.handler.OnPacketError(c, 0, err)
			continue
		}

		if c.trace {
			c.log.Debug("Incoming packet",
				zap.Uint32("packetType", typ),
				zap.Stringer("state", state),
				zap.Int("length", len(body)),
				zap.Binary("body", body))
		}

		// body may point into the receive buffer, it is only released
		// once the packet has been handled
		_ = c.dispatch(state, typ, body)
		c.recv.Commit()

		if c.decryptPending {
			c.decryptPending = false

			// bytes after the encryption response were buffered before the
			// cipher existed
			rest := c.recv.ReadAll()
			c.recv.Commit()
			_, _ = c.recv.Write(c.cipher.Decrypt(rest))
		}
	}
}

func fatalReason(err error) string {
	switch {
	case errors.Is(err, frame.ErrBadCompression):
		return frame.ErrBadCompression.Error()
	case errors.Is(err, frame.ErrCompressionFailure):
		return frame.ErrCompressionFailure.Error()
	case errors.Is(err, frame.ErrFrameTooLarge):
		return frame.ErrFrameTooLarge.Error()
	}

	return "Malformed packet"
}

// Kick sends a disconnect packet with reason when the state has one, moves
// the connection to the errored state and asks the transport to close. It
// is safe to call more than once, only the first call has an effect.
func (c *Conn) Kick(reason string) {
	c.closeOnce.Do(func() {
		c.log.Info("Kicking client", zap.String("reason", reason))

		if err := c.SendDisconnect(reason); err != nil && !errors.Is(err, ErrClosed) {
			c.log.Debug("Failed to send disconnect", zap.Error(err))
		}

		c.state.Store(StateErrored)
		c.cancel()

		if c.transport != nil {
			if err := c.transport.Disconnect(); err != nil {
				c.log.Debug("Failed to disconnect transport", zap.Error(err))
			}
		}

		c.handler.OnDisconnect(c, reason)
	})
}

// Closed is called by the transport once the socket is gone. Input and
// output stop and the handler is told, unless the connection was already
// kicked.
func (c *Conn) Closed(reason string) {
	c.closeOnce.Do(func() {
		c.state.Store(StateErrored)
		c.cancel()

		c.handler.OnDisconnect(c, reason)
	})
}

// reply logs a failed send made on behalf of the inbound flow. The
// connection is already being torn down when that happens.
func (c *Conn) reply(err error) {
	if err != nil && !errors.Is(err, ErrClosed) {
		c.log.Debug("Failed to send reply", zap.Error(err))
	}
}
