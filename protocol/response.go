package protocol

import (
	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
)

type GameMode uint8

const (
	GameModeSurvival  GameMode = 0
	GameModeCreative  GameMode = 1
	GameModeAdventure GameMode = 2
	GameModeSpectator GameMode = 3
)

type Dimension int8

const (
	DimensionNether    Dimension = -1
	DimensionOverworld Dimension = 0
	DimensionEnd       Dimension = 1
)

// ChatPosition is where the client shows a chat message.
type ChatPosition int8

const (
	ChatPlayer      ChatPosition = 0
	ChatSystem      ChatPosition = 1
	ChatAboveHotbar ChatPosition = 2
)

// DifficultyNormal is the difficulty announced on join and respawn.
const DifficultyNormal = 2

// JoinGame describes the world a player enters.
type JoinGame struct {
	EntityID         uint32
	GameMode         GameMode
	Hardcore         bool
	Dimension        Dimension
	Difficulty       uint8
	MaxPlayers       uint8
	LevelType        string
	ReducedDebugInfo bool
}

// Abilities are the movement abilities of the client's own player. Speeds
// are relative to the vanilla defaults.
type Abilities struct {
	Creative     bool
	Flying       bool
	CanFly       bool
	FlyingSpeed  float64
	WalkingSpeed float64
}

// PlayerListEntry is one row of the tab list.
type PlayerListEntry struct {
	UUID        codec.UUID
	Name        string
	Properties  []auth.Property
	GameMode    GameMode
	Ping        int32
	DisplayName string
}

type Statistic struct {
	Name  string
	Value int32
}

// sprintModifier is the attribute modifier id of the sprint speed boost.
var sprintModifier = codec.UUID{
	0x66, 0x2a, 0x6b, 0x8d, 0xda, 0x3e, 0x4c, 0x1c,
	0x88, 0x13, 0x96, 0xea, 0x60, 0x97, 0x27, 0x8d,
}

// SendDisconnect tells the client why it is being dropped. Only the login
// and play states have a disconnect packet, in any other state nothing is
// sent.
func (c *Conn) SendDisconnect(reason string) error {
	var typ uint32

	switch c.State() {
	case StateLogin:
		typ = outLoginDisconnect
	case StatePlay:
		typ = outDisconnect
	default:
		return nil
	}

	return c.WritePacket(typ, func(w *codec.Writer) error {
		w.WriteString(chat.Text(reason))
		return nil
	})
}

// SendKeepAlive is dropped unless the client is in play, earlier states
// have no keep-alive and clients crash on it.
func (c *Conn) SendKeepAlive(id uint32) error {
	if state := c.State(); state != StatePlay {
		c.log.Warn("Dropping keep-alive to a client that is not logged in", zap.Stringer("state", state))
		return nil
	}

	return c.WritePacket(outKeepAlive, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		return nil
	})
}

func (c *Conn) SendJoinGame(j JoinGame) error {
	c.mu.Lock()
	c.dimension = int32(j.Dimension)
	c.dimensionSent = true
	c.mu.Unlock()

	levelType := j.LevelType
	if levelType == "" {
		levelType = "default"
	}

	return c.WritePacket(outJoinGame, func(w *codec.Writer) error {
		mode := uint8(j.GameMode)
		if j.Hardcore {
			mode |= 0x08
		}

		w.WriteUint32(j.EntityID)
		w.WriteUint8(mode)
		w.WriteInt8(int8(j.Dimension))
		w.WriteUint8(j.Difficulty)
		w.WriteUint8(j.MaxPlayers)
		w.WriteString(levelType)
		w.WriteBool(j.ReducedDebugInfo)
		return nil
	})
}

func (c *Conn) SendSpawnPosition(p codec.Position) error {
	return c.WritePacket(outSpawnPosition, func(w *codec.Writer) error {
		w.WritePosition(p)
		return nil
	})
}

func (c *Conn) SendServerDifficulty(difficulty uint8) error {
	return c.WritePacket(outServerDifficulty, func(w *codec.Writer) error {
		w.WriteUint8(difficulty)
		return nil
	})
}

// SendChat sends a plain text message.
func (c *Conn) SendChat(msg string, pos ChatPosition) error {
	return c.SendChatJSON(chat.Text(msg), pos)
}

// SendChatJSON sends a prebuilt text component.
func (c *Conn) SendChatJSON(component string, pos ChatPosition) error {
	return c.WritePacket(outChat, func(w *codec.Writer) error {
		w.WriteString(component)
		w.WriteInt8(int8(pos))
		return nil
	})
}

// SendTimeUpdate sets the world clock. With the daylight cycle off the
// time of day is sent negated, which freezes the client's clock.
func (c *Conn) SendTimeUpdate(worldAge, timeOfDay int64, daylightCycle bool) error {
	if !daylightCycle {
		timeOfDay = -timeOfDay
		if timeOfDay > -1 {
			timeOfDay = -1
		}
	}

	return c.WritePacket(outTimeUpdate, func(w *codec.Writer) error {
		w.WriteInt64(worldAge)
		w.WriteInt64(timeOfDay)
		return nil
	})
}

func (c *Conn) SendUpdateHealth(health float32, food int32, saturation float32) error {
	return c.WritePacket(outUpdateHealth, func(w *codec.Writer) error {
		w.WriteFloat32(health)
		w.WriteVarUInt32(uint32(food))
		w.WriteFloat32(saturation)
		return nil
	})
}

// SendRespawn moves the client to dimension. A respawn into the dimension
// the client is already in confuses it, so it is only sent then if force
// is set, as when respawning after death.
func (c *Conn) SendRespawn(dimension Dimension, mode GameMode, force bool) error {
	c.mu.Lock()
	if c.dimensionSent && c.dimension == int32(dimension) && !force {
		c.mu.Unlock()
		return nil
	}
	c.dimension = int32(dimension)
	c.dimensionSent = true
	c.mu.Unlock()

	return c.WritePacket(outRespawn, func(w *codec.Writer) error {
		w.WriteInt32(int32(dimension))
		w.WriteUint8(DifficultyNormal)
		w.WriteUint8(uint8(mode))
		w.WriteString("default")
		return nil
	})
}

// SendPlayerPositionLook places the client's own player. The height is
// raised slightly so the player does not fall through the block below.
func (c *Conn) SendPlayerPositionLook(x, y, z float64, yaw, pitch float32) error {
	return c.WritePacket(outPlayerPositionLook, func(w *codec.Writer) error {
		w.WriteFloat64(x)
		w.WriteFloat64(y + 0.001)
		w.WriteFloat64(z)
		w.WriteFloat32(yaw)
		w.WriteFloat32(pitch)
		w.WriteUint8(0)
		return nil
	})
}

func (c *Conn) SendExperience(progress float32, level, total int32) error {
	return c.WritePacket(outSetExperience, func(w *codec.Writer) error {
		w.WriteFloat32(progress)
		w.WriteVarUInt32(uint32(level))
		w.WriteVarUInt32(uint32(total))
		return nil
	})
}

func (c *Conn) SendPlayerAbilities(a Abilities) error {
	var flags uint8
	if a.Creative {
		// creative players are also invulnerable
		flags |= 0x01 | 0x08
	}

	if a.Flying {
		flags |= 0x02
	}

	if a.CanFly {
		flags |= 0x04
	}

	return c.WritePacket(outPlayerAbilities, func(w *codec.Writer) error {
		w.WriteUint8(flags)
		w.WriteFloat32(float32(0.05 * a.FlyingSpeed))
		w.WriteFloat32(float32(0.1 * a.WalkingSpeed))
		return nil
	})
}

// SendMaxSpeed sets the movement speed attribute of the client's player.
// Speeds are relative to the vanilla walking speed.
func (c *Conn) SendMaxSpeed(entityID uint32, normal, sprint float64, sprinting bool) error {
	return c.WritePacket(outEntityProperties, func(w *codec.Writer) error {
		w.WriteVarUInt32(entityID)
		w.WriteInt32(1)
		w.WriteString("generic.movementSpeed")
		w.WriteFloat64(0.1 * normal)

		if !sprinting {
			w.WriteVarUInt32(0)
			return nil
		}

		w.WriteVarUInt32(1)
		w.WriteUUID(sprintModifier)
		w.WriteFloat64(sprint - normal)
		w.WriteUint8(2)
		return nil
	})
}

// SendGameMode switches the client's game mode.
func (c *Conn) SendGameMode(mode GameMode) error {
	return c.sendGameState(3, float32(mode))
}

// SendWeather starts or ends rain.
func (c *Conn) SendWeather(raining bool) error {
	if raining {
		return c.sendGameState(2, 0)
	}

	return c.sendGameState(1, 0)
}

func (c *Conn) sendGameState(reason uint8, value float32) error {
	return c.WritePacket(outChangeGameState, func(w *codec.Writer) error {
		w.WriteUint8(reason)
		w.WriteFloat32(value)
		return nil
	})
}

func (c *Conn) SendPluginMessage(channel string, data []byte) error {
	return c.WritePacket(outPluginMessage, func(w *codec.Writer) error {
		w.WriteString(channel)
		w.WriteRaw(data)
		return nil
	})
}

func (c *Conn) SendTabCompletion(results []string) error {
	return c.WritePacket(outTabComplete, func(w *codec.Writer) error {
		w.WriteVarUInt32(uint32(len(results)))
		for _, r := range results {
			w.WriteString(r)
		}
		return nil
	})
}

func (c *Conn) SendStatistics(stats []Statistic) error {
	return c.WritePacket(outStatistics, func(w *codec.Writer) error {
		w.WriteVarUInt32(uint32(len(stats)))
		for _, s := range stats {
			w.WriteString(s.Name)
			w.WriteVarUInt32(uint32(s.Value))
		}
		return nil
	})
}

// Player list actions.
const (
	playerListAdd         = 0
	playerListGameMode    = 1
	playerListLatency     = 2
	playerListDisplayName = 3
	playerListRemove      = 4
)

func (c *Conn) SendPlayerListAdd(e PlayerListEntry) error {
	return c.sendPlayerList(playerListAdd, e.UUID, func(w *codec.Writer) {
		w.WriteString(e.Name)

		w.WriteVarUInt32(uint32(len(e.Properties)))
		for _, p := range e.Properties {
			w.WriteString(p.Name)
			w.WriteString(p.Value)

			if p.Signature == "" {
				w.WriteBool(false)
				continue
			}

			w.WriteBool(true)
			w.WriteString(p.Signature)
		}

		w.WriteVarUInt32(uint32(e.GameMode))
		w.WriteVarUInt32(uint32(e.Ping))
		w.WriteBool(false)
	})
}

func (c *Conn) SendPlayerListGameMode(id codec.UUID, mode GameMode) error {
	return c.sendPlayerList(playerListGameMode, id, func(w *codec.Writer) {
		w.WriteVarUInt32(uint32(mode))
	})
}

func (c *Conn) SendPlayerListLatency(id codec.UUID, ping int32) error {
	return c.sendPlayerList(playerListLatency, id, func(w *codec.Writer) {
		w.WriteVarUInt32(uint32(ping))
	})
}

// SendPlayerListDisplayName sets the name shown in the tab list. An empty
// name reverts to the player's own.
func (c *Conn) SendPlayerListDisplayName(id codec.UUID, name string) error {
	return c.sendPlayerList(playerListDisplayName, id, func(w *codec.Writer) {
		if name == "" {
			w.WriteBool(false)
			return
		}

		w.WriteBool(true)
		w.WriteString(chat.Text(name))
	})
}

func (c *Conn) SendPlayerListRemove(id codec.UUID) error {
	return c.sendPlayerList(playerListRemove, id, nil)
}

func (c *Conn) sendPlayerList(action uint32, id codec.UUID, fields func(w *codec.Writer)) error {
	return c.WritePacket(outPlayerListItem, func(w *codec.Writer) error {
		w.WriteVarUInt32(action)
		w.WriteVarUInt32(1)
		w.WriteUUID(id)

		if fields != nil {
			fields(w)
		}
		return nil
	})
}

// Scoreboard objective modes.
const (
	ObjectiveCreate = 0
	ObjectiveRemove = 1
	ObjectiveUpdate = 2
)

func (c *Conn) SendScoreboardObjective(name, displayName string, mode uint8) error {
	return c.WritePacket(outScoreboardObjective, func(w *codec.Writer) error {
		w.WriteString(name)
		w.WriteUint8(mode)

		if mode == ObjectiveCreate || mode == ObjectiveUpdate {
			w.WriteString(displayName)
			w.WriteString("integer")
		}
		return nil
	})
}

// Score update modes.
const (
	ScoreUpdate = 0
	ScoreRemove = 1
)

func (c *Conn) SendScoreUpdate(objective, player string, score int32, mode uint8) error {
	return c.WritePacket(outUpdateScore, func(w *codec.Writer) error {
		w.WriteString(player)
		w.WriteUint8(mode)
		w.WriteString(objective)

		if mode != ScoreRemove {
			w.WriteVarUInt32(uint32(score))
		}
		return nil
	})
}

func (c *Conn) SendDisplayObjective(objective string, slot uint8) error {
	return c.WritePacket(outDisplayScoreboard, func(w *codec.Writer) error {
		w.WriteUint8(slot)
		w.WriteString(objective)
		return nil
	})
}
