// Package session is a small lobby built on the protocol package. Players
// spawn on a fixed position, see each other in the tab list and can chat.
//
// Shared state lives in a storage.Store:
//
//	players.<uuid>           {"name","uuid","entityId","properties"}
//	players.<uuid>.brand     client brand
//	players.<uuid>.settings  {"locale","viewDistance","chatColors","skinParts"}
//	players.<uuid>.position  {"x","y","z"}
//	players.<uuid>.ping      round trip of the last keep-alive in ms
//	chat                     {"from","text"} of the last message
//
// Store updates reach every connection through Deliver, which the
// transport calls once per connection and update.
package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/protocol"
	"github.com/luma/lodestone/storage"
)

const (
	DefaultKeepAliveInterval = 5 * time.Second
	DefaultMaxPlayers        = 20

	// keep-alives unanswered for this many intervals time the client out
	keepAliveTimeouts = 6

	storeTimeout = 3 * time.Second

	reasonServerFull = "The server is full!"
	reasonBadPacket  = "Malformed packet"
	reasonTimedOut   = "Timed out"
)

type Options struct {
	Store storage.Store

	Description string
	MaxPlayers  int

	// Favicon is a 64x64 PNG shown in the server list.
	Favicon []byte

	Spawn codec.Position

	KeepAliveInterval time.Duration

	Log *zap.Logger
}

// Lobby implements protocol.Handler for every connection of a server.
type Lobby struct {
	protocol.BaseHandler

	store       storage.Store
	description string
	maxPlayers  int
	favicon     []byte
	spawn       codec.Position
	interval    time.Duration

	nextEntityID uint32

	mu      sync.Mutex
	players map[*protocol.Conn]*player

	// accepted by OnLoginStart and not yet in play, they hold a slot
	joining map[*protocol.Conn]struct{}

	log *zap.Logger
}

type player struct {
	entityID uint32
	profile  auth.Profile

	// last keep-alive sent and not yet answered
	keepAliveID   uint32
	keepAliveSent time.Time
	pending       bool
}

// record is the stored form of a player.
type record struct {
	Name       string     `json:"name"`
	UUID       string     `json:"uuid"`
	EntityID   uint32     `json:"entityId"`
	Properties []property `json:"properties,omitempty"`
}

type property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

func NewLobby(opts Options) *Lobby {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}

	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = DefaultKeepAliveInterval
	}

	if opts.Store == nil {
		opts.Store = storage.NewInmemoryStore()
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Lobby{
		store:       opts.Store,
		description: opts.Description,
		maxPlayers:  opts.MaxPlayers,
		favicon:     opts.Favicon,
		spawn:       opts.Spawn,
		interval:    opts.KeepAliveInterval,
		players:     make(map[*protocol.Conn]*player),
		joining:     make(map[*protocol.Conn]struct{}),
		log:         log,
	}
}

func playerKey(id codec.UUID) string {
	return "players." + id.String()
}

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// set writes to the store on behalf of c. Failures are logged, the lobby
// keeps running without the update.
func (l *Lobby) set(c *protocol.Conn, key string, value interface{}) {
	ctx, cancel := storeContext()
	defer cancel()

	if err := l.store.Set(ctx, key, value); err != nil {
		c.Log().Warn("Failed to store player state", zap.String("key", key), zap.Error(err))
	}
}

func (l *Lobby) player(c *protocol.Conn) *player {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.players[c]
}

// Online is the number of players in play.
func (l *Lobby) Online() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.players)
}

// Info is the server list entry.
func (l *Lobby) Info() protocol.StatusInfo {
	return protocol.StatusInfo{
		Description: l.description,
		Online:      l.Online(),
		Max:         l.maxPlayers,
		Favicon:     l.favicon,
	}
}

func (l *Lobby) Status(*protocol.Conn) protocol.StatusInfo {
	return l.Info()
}

func (l *Lobby) OnLoginStart(c *protocol.Conn, name string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.players)+len(l.joining) >= l.maxPlayers {
		c.Log().Info("Refusing player, server is full", zap.String("name", name))
		return reasonServerFull
	}

	l.joining[c] = struct{}{}
	return ""
}

// listedMax is the player cap as the JoinGame byte carries it.
func (l *Lobby) listedMax() uint8 {
	if l.maxPlayers > math.MaxUint8 {
		return math.MaxUint8
	}

	return uint8(l.maxPlayers)
}

func (l *Lobby) OnLogin(c *protocol.Conn, profile auth.Profile) {
	p := &player{
		entityID: atomic.AddUint32(&l.nextEntityID, 1),
		profile:  profile,
	}

	l.mu.Lock()
	delete(l.joining, c)
	l.players[c] = p
	l.mu.Unlock()

	x, y, z := float64(l.spawn.X)+0.5, float64(l.spawn.Y), float64(l.spawn.Z)+0.5

	err := multierr.Combine(
		c.SendJoinGame(protocol.JoinGame{
			EntityID:   p.entityID,
			GameMode:   protocol.GameModeSurvival,
			Dimension:  protocol.DimensionOverworld,
			Difficulty: protocol.DifficultyNormal,
			MaxPlayers: l.listedMax(),
			LevelType:  "flat",
		}),
		c.SendSpawnPosition(l.spawn),
		c.SendServerDifficulty(protocol.DifficultyNormal),
		c.SendPlayerAbilities(protocol.Abilities{CanFly: true, FlyingSpeed: 1, WalkingSpeed: 1}),
		c.SendPlayerPositionLook(x, y, z, 0, 0),
		c.SendTimeUpdate(0, 6000, false),
	)

	for _, other := range l.storedPlayers(c) {
		if other.UUID == profile.UUID {
			continue
		}
		err = multierr.Append(err, c.SendPlayerListAdd(other))
	}

	if err != nil {
		c.Log().Warn("Failed to send the lobby", zap.Error(err))
	}

	rec := record{
		Name:     profile.Name,
		UUID:     profile.UUID.String(),
		EntityID: p.entityID,
	}
	for _, prop := range profile.Properties {
		rec.Properties = append(rec.Properties, property(prop))
	}

	l.set(c, playerKey(profile.UUID), rec)
	l.set(c, playerKey(profile.UUID)+".position", map[string]float64{"x": x, "y": y, "z": z})

	go l.keepAlive(c, p)
}

// storedPlayers reads the tab list entries of every stored player.
func (l *Lobby) storedPlayers(c *protocol.Conn) []protocol.PlayerListEntry {
	ctx, cancel := storeContext()
	defer cancel()

	raw, err := l.store.Get(ctx, "players")
	if err != nil {
		c.Log().Warn("Failed to read players", zap.Error(err))
		return nil
	}

	var out []protocol.PlayerListEntry
	gjson.ParseBytes(raw).ForEach(func(_, value gjson.Result) bool {
		if e, ok := parseEntry(value); ok {
			out = append(out, e)
		}
		return true
	})

	return out
}

func parseEntry(v gjson.Result) (protocol.PlayerListEntry, bool) {
	id, err := codec.ParseUUID(v.Get("uuid").String())
	if err != nil {
		return protocol.PlayerListEntry{}, false
	}

	e := protocol.PlayerListEntry{
		UUID:     id,
		Name:     v.Get("name").String(),
		GameMode: protocol.GameModeSurvival,
	}

	v.Get("properties").ForEach(func(_, p gjson.Result) bool {
		e.Properties = append(e.Properties, auth.Property{
			Name:      p.Get("name").String(),
			Value:     p.Get("value").String(),
			Signature: p.Get("signature").String(),
		})
		return true
	})

	return e, true
}

func (l *Lobby) keepAlive(c *protocol.Conn, p *player) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Context().Done():
			return

		case <-ticker.C:
			l.mu.Lock()
			timedOut := p.pending && time.Since(p.keepAliveSent) > keepAliveTimeouts*l.interval
			if !p.pending {
				p.keepAliveID = rand.Uint32()
				p.keepAliveSent = time.Now()
				p.pending = true
			}
			id := p.keepAliveID
			l.mu.Unlock()

			if timedOut {
				c.Kick(reasonTimedOut)
				return
			}

			if err := c.SendKeepAlive(id); err != nil {
				return
			}
		}
	}
}

func (l *Lobby) OnKeepAlive(c *protocol.Conn, id uint32) {
	p := l.player(c)
	if p == nil {
		return
	}

	l.mu.Lock()
	if !p.pending || p.keepAliveID != id {
		l.mu.Unlock()
		return
	}
	p.pending = false
	ping := time.Since(p.keepAliveSent).Milliseconds()
	l.mu.Unlock()

	l.set(c, playerKey(p.profile.UUID)+".ping", ping)
}

func (l *Lobby) OnChat(c *protocol.Conn, msg string) {
	p := l.player(c)
	if p == nil {
		return
	}

	if strings.HasPrefix(msg, "/") {
		l.command(c, msg)
		return
	}

	l.set(c, "chat", map[string]string{"from": p.profile.Name, "text": msg})
}

func (l *Lobby) command(c *protocol.Conn, line string) {
	var err error

	switch fields := strings.Fields(line); fields[0] {
	case "/list":
		names := l.names()
		err = c.SendChat(fmt.Sprintf("%d/%d online: %s", len(names), l.maxPlayers, strings.Join(names, ", ")), protocol.ChatSystem)
	default:
		err = c.SendChat("Unknown command. Try /list", protocol.ChatSystem)
	}

	if err != nil {
		c.Log().Debug("Failed to answer command", zap.Error(err))
	}
}

func (l *Lobby) names() []string {
	l.mu.Lock()
	names := make([]string, 0, len(l.players))
	for _, p := range l.players {
		names = append(names, p.profile.Name)
	}
	l.mu.Unlock()

	sort.Strings(names)
	return names
}

func (l *Lobby) OnTabComplete(c *protocol.Conn, p protocol.TabComplete) {
	prefix := p.Text
	if i := strings.LastIndexByte(prefix, ' '); i >= 0 {
		prefix = prefix[i+1:]
	}
	prefix = strings.ToLower(prefix)

	var matches []string
	for _, name := range l.names() {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			matches = append(matches, name)
		}
	}

	if err := c.SendTabCompletion(matches); err != nil {
		c.Log().Debug("Failed to send tab completion", zap.Error(err))
	}
}

func (l *Lobby) OnPlayerPosition(c *protocol.Conn, pos protocol.PlayerPosition) {
	l.storePosition(c, pos.X, pos.Y, pos.Z)
}

func (l *Lobby) OnPlayerPositionLook(c *protocol.Conn, pos protocol.PlayerPositionLook) {
	l.storePosition(c, pos.X, pos.Y, pos.Z)
}

func (l *Lobby) storePosition(c *protocol.Conn, x, y, z float64) {
	if p := l.player(c); p != nil {
		l.set(c, playerKey(p.profile.UUID)+".position", map[string]float64{"x": x, "y": y, "z": z})
	}
}

func (l *Lobby) OnClientSettings(c *protocol.Conn, s protocol.ClientSettings) {
	p := l.player(c)
	if p == nil {
		return
	}

	l.set(c, playerKey(p.profile.UUID)+".settings", map[string]interface{}{
		"locale":       s.Locale,
		"viewDistance": s.ViewDistance,
		"chatColors":   s.ChatColors,
		"skinParts":    s.SkinParts,
	})
}

func (l *Lobby) OnBrand(c *protocol.Conn, brand string) {
	if p := l.player(c); p != nil {
		l.set(c, playerKey(p.profile.UUID)+".brand", brand)
	}
}

func (l *Lobby) OnClientStatus(c *protocol.Conn, action protocol.ClientStatusAction) {
	if action != protocol.StatusRespawn {
		return
	}

	err := multierr.Combine(
		c.SendRespawn(protocol.DimensionOverworld, protocol.GameModeSurvival, true),
		c.SendPlayerPositionLook(float64(l.spawn.X)+0.5, float64(l.spawn.Y), float64(l.spawn.Z)+0.5, 0, 0),
	)
	if err != nil {
		c.Log().Debug("Failed to respawn", zap.Error(err))
	}
}

func (l *Lobby) OnPacketError(c *protocol.Conn, typ uint32, err error) {
	c.Log().Info("Kicking client after a malformed packet", zap.Uint32("packetType", typ), zap.Error(err))
	c.Kick(reasonBadPacket)
}

func (l *Lobby) OnDisconnect(c *protocol.Conn, reason string) {
	l.mu.Lock()
	p, ok := l.players[c]
	delete(l.players, c)
	delete(l.joining, c)
	l.mu.Unlock()

	if !ok {
		return
	}

	c.Log().Info("Player left", zap.String("name", p.profile.Name), zap.String("reason", reason))

	ctx, cancel := storeContext()
	defer cancel()

	if err := l.store.Delete(ctx, playerKey(p.profile.UUID)); err != nil {
		c.Log().Warn("Failed to remove player", zap.Error(err))
	}
}

// Deliver sends the packets that show update to the player on c. It is
// called for every connection, connections that are not in play yet are
// skipped.
func (l *Lobby) Deliver(c *protocol.Conn, update *storage.Update) error {
	if l.player(c) == nil {
		return nil
	}

	if update.Key == "chat" {
		msg := gjson.ParseBytes(update.Value)
		return c.SendChat(fmt.Sprintf("<%s> %s", msg.Get("from").String(), msg.Get("text").String()), protocol.ChatPlayer)
	}

	rest := strings.TrimPrefix(update.Key, "players.")
	if rest == update.Key {
		return nil
	}

	uuid, field := rest, ""
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		uuid, field = rest[:i], rest[i+1:]
	}

	id, err := codec.ParseUUID(uuid)
	if err != nil {
		return err
	}

	switch field {
	case "":
		if update.Deleted() {
			return c.SendPlayerListRemove(id)
		}

		e, ok := parseEntry(gjson.ParseBytes(update.Value))
		if !ok {
			return nil
		}
		return c.SendPlayerListAdd(e)

	case "ping":
		return c.SendPlayerListLatency(id, int32(gjson.ParseBytes(update.Value).Int()))
	}

	return nil
}

var _ protocol.Handler = (*Lobby)(nil)
