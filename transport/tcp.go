package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"strconv"
	"sync"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/luma/lodestone/internal/metrics"
	"github.com/luma/lodestone/protocol"
	"github.com/luma/lodestone/storage"
)

const (
	DefaultMaxConnections = 512

	writeQueueSize = 127
	readBufferSize = 4096
	writeTimeout   = 10 * time.Second

	reasonShutdown = "Server closed"
)

// ErrConnClosed is returned by writes to a connection that is draining or
// gone.
var ErrConnClosed = errors.New("tcp connection closed")

// Deliverer shows a store update to the player on one connection.
type Deliverer interface {
	Deliver(c *protocol.Conn, update *storage.Update) error
}

type TCP struct {
	cancel     context.CancelFunc
	group      *errgroup.Group
	connWaiter sync.WaitGroup

	addr         string
	reuseport    bool
	numListeners int
	maxConns     int

	listeners []*TCPListener

	store     storage.Store
	handler   protocol.Handler
	deliverer Deliverer
	connOpts  protocol.Options

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}

	metrics *metrics.Metrics
	log     *zap.Logger
	trace   bool
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners
	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	if !options.Reuseport {
		numListeners = 1
	}

	maxConns := options.MaxConnections
	if maxConns < 1 {
		maxConns = DefaultMaxConnections
	}

	deliverer := options.Deliverer
	if deliverer == nil {
		deliverer, _ = options.Handler.(Deliverer)
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		maxConns:     maxConns,
		listeners:    make([]*TCPListener, 0, numListeners),
		store:        options.Store,
		handler:      options.Handler,
		deliverer:    deliverer,
		connOpts:     options.Conn,
		activeConns:  make(map[*TCPConn]struct{}),
		metrics:      options.Metrics,
		log:          log,
		trace:        options.Trace,
	}
}

// Start binds every listener before returning, then accepts connections
// and relays store updates in the background until Close.
func (t *TCP) Start(parentCtx context.Context) error {
	t.log.Info("Starting tcp listeners",
		zap.String("addr", t.addr),
		zap.Int("count", t.numListeners),
		zap.Bool("reuseport", t.reuseport))

	perListener := t.maxConns / t.numListeners
	if perListener < 1 {
		perListener = 1
	}

	addr := t.addr
	for i := 0; i < t.numListeners; i++ {
		l, err := t.listen(addr)
		if err != nil {
			for _, listener := range t.listeners {
				listener.Close()
			}
			t.listeners = t.listeners[:0]
			return err
		}

		// every later listener shares the port the first one got
		addr = l.Addr().String()

		t.listeners = append(t.listeners, &TCPListener{
			server:   t,
			listener: netutil.LimitListener(l, perListener),
			log:      t.log.Named("listener").With(zap.Int("listener", i)),
		})
	}

	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	group, groupCtx := errgroup.WithContext(ctx)
	t.group = group

	for _, listener := range t.listeners {
		listener := listener
		group.Go(func() error {
			return listener.Listen(groupCtx)
		})
	}

	if t.store != nil && t.deliverer != nil {
		updates := t.store.ListenToUpdates()
		group.Go(func() error {
			t.relayUpdates(groupCtx, updates)
			return nil
		})
	}

	return nil
}

func (t *TCP) listen(addr string) (net.Listener, error) {
	if t.reuseport {
		return reuseport.Listen("tcp", addr)
	}

	return net.Listen("tcp", addr)
}

// Addrs returns the bound address of every listener.
func (t *TCP) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(t.listeners))
	for _, listener := range t.listeners {
		addrs = append(addrs, listener.Addr())
	}

	return addrs
}

func (t *TCP) Store() storage.Store {
	return t.store
}

// Close immediately closes all listeners and connections.
//
// For a graceful shutdown, use Shutdown()
func (t *TCP) Close() error {
	t.log.Info("Stopping TCP server")

	if t.cancel == nil {
		return nil
	}
	t.cancel()

	var err error
	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	err = multierr.Append(err, t.group.Wait())

	t.log.Info("Waiting for connections")
	t.connWaiter.Wait()
	t.log.Info("TCP server stopped")

	return err
}

// Shutdown kicks every client and waits for their connections to drain
// until ctx ends, then closes the server.
func (t *TCP) Shutdown(ctx context.Context) error {
	for _, conn := range t.conns() {
		conn.proto.Kick(reasonShutdown)
	}

	drained := make(chan struct{})
	go func() {
		t.connWaiter.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		t.log.Warn("Connections did not drain in time", zap.Int("remaining", len(t.conns())))
	}

	return t.Close()
}

func (t *TCP) relayUpdates(ctx context.Context, updates <-chan *storage.Update) {
	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-updates:
			if !ok {
				return
			}

			if err := t.Broadcast(update); err != nil {
				t.log.Warn("Failed to deliver update",
					zap.String("key", update.Key),
					zap.Error(err))
			}
		}
	}
}

// Broadcast delivers update to every open connection.
func (t *TCP) Broadcast(update *storage.Update) (err error) {
	if t.deliverer == nil {
		return nil
	}

	for _, conn := range t.conns() {
		if uerr := t.deliverer.Deliver(conn.proto, update); uerr != nil && !errors.Is(uerr, protocol.ErrClosed) {
			err = multierr.Append(err, uerr)
		}
	}

	return err
}

// Count is the number of open connections.
func (t *TCP) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.activeConns)
}

func (t *TCP) conns() []*TCPConn {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns := make([]*TCPConn, 0, len(t.activeConns))
	for conn := range t.activeConns {
		conns = append(conns, conn)
	}

	return conns
}

func (t *TCP) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCP) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

type TCPListener struct {
	server   *TCP
	listener net.Listener
	log      *zap.Logger
}

func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *TCPListener) Close() error {
	err := l.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// Listen accepts connections until ctx ends or the listener is closed.
func (l *TCPListener) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := l.Close(); err != nil {
			l.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.log.Info("Listener stopped")
				return nil
			}

			return err
		}

		tcpConn := newTCPConn(ctx, conn, l.server, l.log.Named("conn"))
		l.server.addConn(tcpConn)
		l.server.connWaiter.Add(1)

		go func() {
			defer l.server.connWaiter.Done()
			defer l.server.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

// TCPConn moves bytes between a socket and its protocol.Conn. It is the
// protocol.Transport of that connection.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	conn  net.Conn
	proto *protocol.Conn

	writeQueue chan []byte

	// draining is closed by Disconnect, the write loop flushes the queue
	// and closes the socket
	draining  chan struct{}
	drainOnce sync.Once

	metrics *metrics.Metrics
	log     *zap.Logger
	trace   bool
}

func newTCPConn(parentCtx context.Context, conn net.Conn, server *TCP, log *zap.Logger) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	t := &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		writeQueue: make(chan []byte, writeQueueSize),
		draining:   make(chan struct{}),
		metrics:    server.metrics,
		log:        log.With(zap.Stringer("remoteAddr", conn.RemoteAddr())),
		trace:      server.trace,
	}

	opts := server.connOpts
	opts.Transport = t
	opts.Handler = server.handler
	opts.RemoteAddr = conn.RemoteAddr()
	opts.Metrics = server.metrics
	opts.Log = log
	opts.Trace = opts.Trace || server.trace

	t.proto = protocol.NewConn(ctx, opts)

	return t
}

// Protocol returns the protocol state of the connection.
func (t *TCPConn) Protocol() *protocol.Conn {
	return t.proto
}

// Start runs the read and write loops and returns once both have exited.
func (t *TCPConn) Start() {
	t.metrics.ConnectionOpened()
	defer t.metrics.ConnectionClosed()

	t.log.Debug("Client connected")

	t.loopWaiter.Add(2)

	go func() {
		defer t.loopWaiter.Done()
		t.ReadLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.WriteLoop()
	}()

	t.loopWaiter.Wait()
	t.cancel()

	t.log.Debug("Client disconnected")
}

func (t *TCPConn) ReadLoop() {
	// stop writing too once the client is gone
	defer t.Disconnect()

	buf := make([]byte, readBufferSize)

	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			if t.trace {
				t.log.Debug("Read", zap.Int("length", n))
			}

			var fatal *protocol.FatalError
			if perr := t.proto.DataReceived(buf[:n]); errors.As(perr, &fatal) {
				t.log.Info("Dropping client with a malformed stream", zap.String("reason", fatal.Reason))
			}
		}

		if err != nil {
			t.proto.Closed(t.closeReason(err))
			return
		}
	}
}

func (t *TCPConn) closeReason(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "EOF"
	case t.ctx.Err() != nil:
		return reasonShutdown
	}

	return err.Error()
}

func (t *TCPConn) WriteLoop() {
	defer func() {
		if err := t.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("Failed to close connection cleanly", zap.Error(err))
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			return

		case data := <-t.writeQueue:
			if err := t.write(data); err != nil {
				return
			}

		case <-t.draining:
			for {
				select {
				case data := <-t.writeQueue:
					if err := t.write(data); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (t *TCPConn) write(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	if _, err := t.conn.Write(data); err != nil {
		t.log.Debug("Failed to write to client", zap.Error(err))
		return err
	}

	if t.trace {
		t.log.Debug("Wrote", zap.Int("length", len(data)))
	}

	return nil
}

// Write queues a copy of data for the write loop. It blocks while the
// queue is full.
func (t *TCPConn) Write(data []byte) (int, error) {
	if !t.isRunning() {
		return 0, ErrConnClosed
	}

	buf := append([]byte(nil), data...)

	select {
	case t.writeQueue <- buf:
		return len(data), nil
	case <-t.draining:
		return 0, ErrConnClosed
	case <-t.ctx.Done():
		return 0, ErrConnClosed
	}
}

// Disconnect closes the connection once everything already written has
// been sent.
func (t *TCPConn) Disconnect() error {
	t.drainOnce.Do(func() {
		close(t.draining)
	})

	return nil
}

// isRunning returns false once the connection is draining or closed
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.draining:
		return false
	case <-t.ctx.Done():
		return false
	default:
		return true
	}
}

var _ protocol.Transport = (*TCPConn)(nil)
