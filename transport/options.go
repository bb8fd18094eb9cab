package transport

import (
	"go.uber.org/zap"

	"github.com/luma/lodestone/internal/metrics"
	"github.com/luma/lodestone/protocol"
	"github.com/luma/lodestone/storage"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port. See TCP.Addrs.
	Port int

	// Reuseport binds NumListeners sockets to the same port with
	// SO_REUSEPORT. Without it a single listener is used.
	Reuseport bool

	// Trace logs every chunk read and written. This is only useful in local
	// debugging
	Trace bool

	// NumListeners defaults to the number of CPUs.
	NumListeners int

	// MaxConnections caps open client connections across all listeners.
	MaxConnections int

	Store   storage.Store
	Handler protocol.Handler

	// Deliverer is told about every store update, once per connection. It
	// defaults to Handler when Handler implements Deliverer.
	Deliverer Deliverer

	// Conn holds the protocol settings every connection starts from, such
	// as the key pair and authenticator. Transport, Handler and the
	// ambient fields are filled in per connection.
	Conn protocol.Options

	Metrics *metrics.Metrics
	Log     *zap.Logger
}
