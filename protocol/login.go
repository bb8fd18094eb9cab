package protocol

import (
	"bytes"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/encryption"
)

const (
	// MaxEncryptedLen bounds both fields of an encryption response.
	MaxEncryptedLen = 512

	// MaxNameLen is the longest accepted player name.
	MaxNameLen = 16

	reasonHackedClient   = "Hacked client"
	reasonBadUsername    = "Bad username"
	reasonNotVerified    = "Failed to verify username!"
	reasonOutdatedClient = "Outdated client or server"
)

const tracerName = "github.com/luma/lodestone/protocol"

func decodeHandshake(c *Conn, r *fieldReader) error {
	h := Handshake{
		ProtocolVersion: r.varint(),
		ServerAddress:   r.str(),
		ServerPort:      r.u16(),
		NextState:       r.varint(),
	}
	if r.err != nil {
		return r.err
	}

	c.log.Debug("Handshake",
		zap.Uint32("protocolVersion", h.ProtocolVersion),
		zap.String("serverAddress", h.ServerAddress),
		zap.Uint16("serverPort", h.ServerPort),
		zap.Uint32("nextState", h.NextState))

	switch State(h.NextState) {
	case StateStatus:
		c.state.Store(StateStatus)

	case StateLogin:
		c.state.Store(StateLogin)

		if h.ProtocolVersion != ProtocolVersion {
			c.Kick(reasonOutdatedClient)
		}

	default:
		c.log.Info("Unknown next state in handshake", zap.Uint32("nextState", h.NextState))
		c.state.Store(StateErrored)
	}

	return nil
}

func decodeLoginStart(c *Conn, r *fieldReader) error {
	name := r.str()
	if r.err != nil || name == "" || len(name) > MaxNameLen {
		c.Kick(reasonBadUsername)
		r.rest()
		return nil
	}

	if reason := c.handler.OnLoginStart(c, name); reason != "" {
		c.Kick(reason)
		return nil
	}

	c.mu.Lock()
	c.name = name
	c.mu.Unlock()

	if !c.authenticate {
		c.finishLogin(auth.OfflineProfile(name))
		return nil
	}

	if c.keys == nil {
		c.log.Error("Authentication is on but the server has no key pair")
		c.Kick(reasonNotVerified)
		return nil
	}

	c.reply(c.SendEncryptionRequest())
	return nil
}

// SendEncryptionRequest asks the client to encrypt a shared secret and this
// connection's nonce with the server's public key.
func (c *Conn) SendEncryptionRequest() error {
	der := c.keys.PublicDER()

	return c.WritePacket(outEncryptionRequest, func(w *codec.Writer) error {
		w.WriteString(c.serverID)
		w.WriteByteArray(der)
		w.WriteByteArray(c.nonce[:])
		return nil
	})
}

func decodeEncryptionResponse(c *Conn, r *fieldReader) error {
	encKey := r.byteArray(0)
	encNonce := r.byteArray(0)
	if r.err != nil {
		return r.err
	}

	if !c.authenticate || c.keys == nil || c.Name() == "" {
		c.log.Info("Unexpected encryption response")
		c.Kick(reasonHackedClient)
		return nil
	}

	if len(encKey) > MaxEncryptedLen || len(encNonce) > MaxEncryptedLen {
		c.log.Info("Encryption response too long",
			zap.Int("keyLength", len(encKey)),
			zap.Int("nonceLength", len(encNonce)))
		c.Kick(reasonHackedClient)
		return nil
	}

	nonce, err := c.keys.Decrypt(encNonce)
	if err != nil || len(nonce) != len(c.nonce) {
		c.log.Info("Bad nonce length", zap.Int("length", len(nonce)), zap.Error(err))
		c.Kick(reasonHackedClient)
		return nil
	}

	if !bytes.Equal(nonce, c.nonce[:]) {
		c.log.Info("Bad nonce value")
		c.Kick(reasonHackedClient)
		return nil
	}

	key, err := c.keys.Decrypt(encKey)
	if err != nil || len(key) != encryption.KeySize {
		c.log.Info("Bad key length", zap.Int("length", len(key)), zap.Error(err))
		c.Kick(reasonHackedClient)
		return nil
	}

	if err := c.enableEncryption(key); err != nil {
		c.log.Warn("Failed to enable encryption", zap.Error(err))
		c.Kick(reasonHackedClient)
		return nil
	}

	hash := auth.ServerHash(c.serverID, key, c.keys.PublicDER())
	go c.verify(c.Name(), hash)

	return nil
}

// enableEncryption starts both cipher streams. Packets written after it
// returns are encrypted and the rest of the receive buffer is decrypted
// once the current packet is done.
func (c *Conn) enableEncryption(key []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.cipher.Init(key); err != nil {
		return err
	}

	c.decryptPending = true
	return nil
}

// verify asks the authenticator about the player and finishes the login on
// success.
func (c *Conn) verify(name, serverHash string) {
	ctx, span := otel.Tracer(tracerName).Start(c.ctx, "protocol.Authenticate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("player.name", name)))
	defer span.End()

	profile, err := c.authenticator.Authenticate(ctx, name, serverHash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		result := "error"
		if errors.Is(err, auth.ErrNotVerified) {
			result = "denied"
		}

		c.metrics.Login(result)
		c.log.Info("Failed to verify username", zap.String("name", name), zap.Error(err))
		c.Kick(reasonNotVerified)

		return
	}

	span.SetAttributes(attribute.String("player.uuid", profile.UUID.String()))
	span.SetStatus(codes.Ok, "")

	c.finishLogin(profile)
}

// finishLogin announces compression, switches to play and confirms the
// login. Compressed framing starts with the packet after SetCompression.
func (c *Conn) finishLogin(profile auth.Profile) {
	c.writeMu.Lock()

	if c.State() != StateLogin {
		c.writeMu.Unlock()
		return
	}

	err := c.writePacketLocked(outLoginSetCompression, func(w *codec.Writer) error {
		w.WriteVarUInt32(uint32(c.threshold))
		return nil
	})

	if err == nil {
		c.state.Store(StatePlay)

		err = c.writePacketLocked(outLoginSuccess, func(w *codec.Writer) error {
			w.WriteString(profile.UUID.String())
			w.WriteString(profile.Name)
			return nil
		})
	}

	c.writeMu.Unlock()

	if err != nil {
		c.log.Warn("Failed to finish login", zap.Error(err))
		c.Kick("Login failed")
		return
	}

	c.mu.Lock()
	c.profile = profile
	c.loggedIn = true
	c.mu.Unlock()

	c.metrics.Login("ok")
	c.log.Info("Player logged in",
		zap.String("name", profile.Name),
		zap.Stringer("uuid", profile.UUID))

	c.handler.OnLogin(c, profile)
}
