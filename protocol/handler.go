package protocol

import (
	"github.com/luma/lodestone/auth"
)

// StatusInfo is the server list entry returned to a status request.
type StatusInfo struct {
	Description string
	Online      int
	Max         int

	// Favicon is a PNG image, sent as a data URL when present.
	Favicon []byte
}

// Handler is the domain side of a connection. The Conn calls it from the
// inbound flow, one packet at a time, after the packet has been decoded
// in full. OnLogin may be called from the goroutine that authenticated the
// player.
//
// Embed BaseHandler to implement only the methods you need.
type Handler interface {
	// Status returns the values of the server list entry.
	Status(c *Conn) StatusInfo

	// OnLoginStart is called with the name a client wants to log in as. A
	// non-empty reason rejects the client with that reason.
	OnLoginStart(c *Conn, name string) (reason string)

	// OnLogin is called once the client is in the Play state.
	OnLogin(c *Conn, p auth.Profile)

	OnKeepAlive(c *Conn, id uint32)
	OnChat(c *Conn, msg string)
	OnUseEntity(c *Conn, p UseEntity)
	OnPlayer(c *Conn, onGround bool)
	OnPlayerPosition(c *Conn, p PlayerPosition)
	OnPlayerLook(c *Conn, p PlayerLook)
	OnPlayerPositionLook(c *Conn, p PlayerPositionLook)
	OnBlockDig(c *Conn, p BlockDig)
	OnBlockPlace(c *Conn, p BlockPlace)
	OnSlotSelect(c *Conn, slot int16)
	OnAnimation(c *Conn)
	OnEntityAction(c *Conn, p EntityAction)
	OnSteerVehicle(c *Conn, p SteerVehicle)
	OnWindowClose(c *Conn, window uint8)
	OnWindowClick(c *Conn, p WindowClick)
	OnConfirmTransaction(c *Conn, p ConfirmTransaction)
	OnCreativeInventoryAction(c *Conn, p CreativeInventoryAction)
	OnEnchantItem(c *Conn, p EnchantItem)
	OnUpdateSign(c *Conn, p UpdateSign)
	OnPlayerAbilities(c *Conn, p PlayerAbilities)
	OnTabComplete(c *Conn, p TabComplete)
	OnClientSettings(c *Conn, p ClientSettings)
	OnClientStatus(c *Conn, action ClientStatusAction)

	// OnPluginMessage receives plugin channel messages, including vendor
	// channels this package does not decode.
	OnPluginMessage(c *Conn, channel string, data []byte)

	OnCommandBlockChange(c *Conn, p CommandBlockChange)
	OnBrand(c *Conn, brand string)
	OnBeaconSelection(c *Conn, primary, secondary int32)
	OnItemName(c *Conn, name string)
	OnTrade(c *Conn, slot int32)

	// OnUnknownPacket is called for a type code with no decoder in the
	// current state.
	OnUnknownPacket(c *Conn, state State, typ uint32)

	// OnPacketError is called when a packet body was read short or long.
	// The connection keeps running, the handler decides whether to kick.
	OnPacketError(c *Conn, typ uint32, err error)

	// OnDisconnect is called once when the connection is kicked or
	// closed.
	OnDisconnect(c *Conn, reason string)
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) Status(*Conn) StatusInfo { return StatusInfo{} }

func (BaseHandler) OnLoginStart(*Conn, string) string { return "" }

func (BaseHandler) OnLogin(*Conn, auth.Profile)                              {}
func (BaseHandler) OnKeepAlive(*Conn, uint32)                                {}
func (BaseHandler) OnChat(*Conn, string)                                     {}
func (BaseHandler) OnUseEntity(*Conn, UseEntity)                             {}
func (BaseHandler) OnPlayer(*Conn, bool)                                     {}
func (BaseHandler) OnPlayerPosition(*Conn, PlayerPosition)                   {}
func (BaseHandler) OnPlayerLook(*Conn, PlayerLook)                           {}
func (BaseHandler) OnPlayerPositionLook(*Conn, PlayerPositionLook)           {}
func (BaseHandler) OnBlockDig(*Conn, BlockDig)                               {}
func (BaseHandler) OnBlockPlace(*Conn, BlockPlace)                           {}
func (BaseHandler) OnSlotSelect(*Conn, int16)                                {}
func (BaseHandler) OnAnimation(*Conn)                                        {}
func (BaseHandler) OnEntityAction(*Conn, EntityAction)                       {}
func (BaseHandler) OnSteerVehicle(*Conn, SteerVehicle)                       {}
func (BaseHandler) OnWindowClose(*Conn, uint8)                               {}
func (BaseHandler) OnWindowClick(*Conn, WindowClick)                         {}
func (BaseHandler) OnConfirmTransaction(*Conn, ConfirmTransaction)           {}
func (BaseHandler) OnCreativeInventoryAction(*Conn, CreativeInventoryAction) {}
func (BaseHandler) OnEnchantItem(*Conn, EnchantItem)                         {}
func (BaseHandler) OnUpdateSign(*Conn, UpdateSign)                           {}
func (BaseHandler) OnPlayerAbilities(*Conn, PlayerAbilities)                 {}
func (BaseHandler) OnTabComplete(*Conn, TabComplete)                         {}
func (BaseHandler) OnClientSettings(*Conn, ClientSettings)                   {}
func (BaseHandler) OnClientStatus(*Conn, ClientStatusAction)                 {}
func (BaseHandler) OnPluginMessage(*Conn, string, []byte)                    {}
func (BaseHandler) OnCommandBlockChange(*Conn, CommandBlockChange)           {}
func (BaseHandler) OnBrand(*Conn, string)                                    {}
func (BaseHandler) OnBeaconSelection(*Conn, int32, int32)                    {}
func (BaseHandler) OnItemName(*Conn, string)                                 {}
func (BaseHandler) OnTrade(*Conn, int32)                                     {}
func (BaseHandler) OnUnknownPacket(*Conn, State, uint32)                     {}
func (BaseHandler) OnPacketError(*Conn, uint32, error)                       {}
func (BaseHandler) OnDisconnect(*Conn, string)                               {}

var _ Handler = BaseHandler{}
