package protocol

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

var (
	// ErrUnknownPacket is reported for a type code that has no decoder in
	// the state it was received in.
	ErrUnknownPacket = errors.New("Unhandled packet")

	// ErrPacketLength is reported when a decoder did not consume exactly
	// the packet body.
	ErrPacketLength = errors.New("Wrong number of bytes read for packet")
)

// fieldReader reads packet fields in order from one packet body. The first
// failed read is sticky, later reads return zero values so a decoder can
// read all of its fields and check err once.
type fieldReader struct {
	b   *codec.Buffer
	err error

	// warnings are recoverable item metadata failures
	warnings []error
}

func newFieldReader(body []byte) *fieldReader {
	return &fieldReader{b: codec.NewBuffer(body)}
}

func (r *fieldReader) fail(err error) bool {
	if err != nil && r.err == nil {
		r.err = err
	}

	return r.err != nil
}

func (r *fieldReader) u8() uint8 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint8()
	r.fail(err)
	return v
}

func (r *fieldReader) i8() int8 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt8()
	r.fail(err)
	return v
}

func (r *fieldReader) u16() uint16 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint16()
	r.fail(err)
	return v
}

func (r *fieldReader) i16() int16 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt16()
	r.fail(err)
	return v
}

func (r *fieldReader) i32() int32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt32()
	r.fail(err)
	return v
}

func (r *fieldReader) i64() int64 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt64()
	r.fail(err)
	return v
}

func (r *fieldReader) f32() float32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadFloat32()
	r.fail(err)
	return v
}

func (r *fieldReader) f64() float64 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadFloat64()
	r.fail(err)
	return v
}

func (r *fieldReader) boolean() bool {
	if r.err != nil {
		return false
	}

	v, err := r.b.ReadBool()
	r.fail(err)
	return v
}

func (r *fieldReader) varint() uint32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadVarUInt32()
	r.fail(err)
	return v
}

func (r *fieldReader) str() string {
	if r.err != nil {
		return ""
	}

	v, err := r.b.ReadString()
	r.fail(err)
	return v
}

func (r *fieldReader) byteArray(limit int) []byte {
	if r.err != nil {
		return nil
	}

	v, err := r.b.ReadByteArray(limit)
	r.fail(err)
	return v
}

func (r *fieldReader) pos() codec.Position {
	if r.err != nil {
		return codec.Position{}
	}

	v, err := r.b.ReadPosition()
	r.fail(err)
	return v
}

// item reads a stack whose metadata runs up to the last keep bytes of the
// body. Unparsable metadata is kept as a warning, the stack itself is
// still returned.
func (r *fieldReader) item(keep int) item.Item {
	if r.err != nil {
		return item.Empty
	}

	it, err := item.Read(r.b, keep)

	var metaErr *item.MetadataError
	if errors.As(err, &metaErr) {
		r.warnings = append(r.warnings, metaErr)
		return it
	}

	r.fail(err)
	return it
}

// rest returns a copy of every unread byte of the body.
func (r *fieldReader) rest() []byte {
	if r.err != nil {
		return nil
	}

	return append([]byte(nil), r.b.ReadAll()...)
}

func (r *fieldReader) remaining() int {
	return r.b.Remaining()
}

// decodeFunc decodes one packet body and hands the result to the handler.
// It returns the sticky read error, if any.
type decodeFunc func(c *Conn, r *fieldReader) error

// dispatchTable maps a state and a packet type code to its decoder. It is
// never modified after initialization.
var dispatchTable = map[State]map[uint32]decodeFunc{
	StateHandshaking: {
		HandshakeID: decodeHandshake,
	},
	StateStatus: {
		StatusRequestID: decodeStatusRequest,
		StatusPingID:    decodeStatusPing,
	},
	StateLogin: {
		LoginStartID:         decodeLoginStart,
		EncryptionResponseID: decodeEncryptionResponse,
	},
	StatePlay: {
		KeepAliveID:               decodeKeepAlive,
		ChatMessageID:             decodeChatMessage,
		UseEntityID:               decodeUseEntity,
		PlayerID:                  decodePlayer,
		PlayerPositionID:          decodePlayerPosition,
		PlayerLookID:              decodePlayerLook,
		PlayerPositionLookID:      decodePlayerPositionLook,
		BlockDigID:                decodeBlockDig,
		BlockPlaceID:              decodeBlockPlace,
		SlotSelectID:              decodeSlotSelect,
		AnimationID:               decodeAnimation,
		EntityActionID:            decodeEntityAction,
		SteerVehicleID:            decodeSteerVehicle,
		WindowCloseID:             decodeWindowClose,
		WindowClickID:             decodeWindowClick,
		ConfirmTransactionID:      decodeConfirmTransaction,
		CreativeInventoryActionID: decodeCreativeInventoryAction,
		EnchantItemID:             decodeEnchantItem,
		UpdateSignID:              decodeUpdateSign,
		PlayerAbilitiesID:         decodePlayerAbilities,
		TabCompleteID:             decodeTabComplete,
		ClientSettingsID:          decodeClientSettings,
		ClientStatusID:            decodeClientStatus,
		PluginMessageID:           decodePluginMessage,
	},
}

// dispatch decodes one packet received in state and reports anything that
// went wrong to the handler. It never stops the pipeline.
func (c *Conn) dispatch(state State, typ uint32, body []byte) error {
	decoders, ok := dispatchTable[state]
	if !ok {
		c.log.Warn("Received a packet in an unknown protocol state, ignoring further packets",
			zap.Stringer("state", state))
		c.state.Store(StateErrored)
		return fmt.Errorf("%w: type 0x%x, state %s", ErrUnknownPacket, typ, state)
	}

	decode, ok := decoders[typ]
	if !ok {
		c.log.Warn("Unhandled packet",
			zap.Uint32("packetType", typ),
			zap.Stringer("state", state),
			zap.Int("length", len(body)))

		c.metrics.UnknownPacket(state.String())
		c.handler.OnUnknownPacket(c, state, typ)
		return fmt.Errorf("%w: type 0x%x, state %s", ErrUnknownPacket, typ, state)
	}

	r := newFieldReader(body)
	err := decode(c, r)

	for _, w := range r.warnings {
		c.log.Warn("Failed to parse item metadata", zap.Uint32("packetType", typ), zap.Error(w))
	}

	if err == nil && r.remaining() != 0 {
		err = fmt.Errorf("%w: 0x%02x, %d bytes left", ErrPacketLength, typ, r.remaining())
	} else if err != nil {
		err = fmt.Errorf("%w: 0x%02x: %w", ErrPacketLength, typ, err)
	}

	if err != nil {
		c.log.Warn("Wrong number of bytes read for packet",
			zap.Uint32("packetType", typ),
			zap.Stringer("state", state),
			zap.Int("length", len(body)),
			zap.Error(err))

		c.metrics.PacketError("length")
		c.handler.OnPacketError(c, typ, err)
	}

	return err
}

func decodeKeepAlive(c *Conn, r *fieldReader) error {
	id := r.varint()
	if r.err != nil {
		return r.err
	}

	c.handler.OnKeepAlive(c, id)
	return nil
}

func decodeChatMessage(c *Conn, r *fieldReader) error {
	msg := r.str()
	if r.err != nil {
		return r.err
	}

	c.handler.OnChat(c, msg)
	return nil
}

func decodeUseEntity(c *Conn, r *fieldReader) error {
	p := UseEntity{
		Target: r.varint(),
		Type:   UseEntityType(r.varint()),
	}

	switch p.Type {
	case UseEntityInteract, UseEntityAttack:
	case UseEntityInteractAt:
		p.TargetX = r.f32()
		p.TargetY = r.f32()
		p.TargetZ = r.f32()
	default:
		if r.err == nil {
			c.log.Warn("Unknown use entity type", zap.Uint32("type", uint32(p.Type)))
			return nil
		}
	}

	if r.err != nil {
		return r.err
	}

	c.handler.OnUseEntity(c, p)
	return nil
}

func decodePlayer(c *Conn, r *fieldReader) error {
	onGround := r.boolean()
	if r.err != nil {
		return r.err
	}

	c.handler.OnPlayer(c, onGround)
	return nil
}

func decodePlayerPosition(c *Conn, r *fieldReader) error {
	p := PlayerPosition{
		X:        r.f64(),
		Y:        r.f64(),
		Z:        r.f64(),
		OnGround: r.boolean(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnPlayerPosition(c, p)
	return nil
}

func decodePlayerLook(c *Conn, r *fieldReader) error {
	p := PlayerLook{
		Yaw:      r.f32(),
		Pitch:    r.f32(),
		OnGround: r.boolean(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnPlayerLook(c, p)
	return nil
}

func decodePlayerPositionLook(c *Conn, r *fieldReader) error {
	p := PlayerPositionLook{
		X:        r.f64(),
		Y:        r.f64(),
		Z:        r.f64(),
		Yaw:      r.f32(),
		Pitch:    r.f32(),
		OnGround: r.boolean(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnPlayerPositionLook(c, p)
	return nil
}

func decodeBlockDig(c *Conn, r *fieldReader) error {
	p := BlockDig{
		Status:   r.u8(),
		Position: r.pos(),
		Face:     toBlockFace(r.i8()),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnBlockDig(c, p)
	return nil
}

func decodeBlockPlace(c *Conn, r *fieldReader) error {
	p := BlockPlace{
		Position: r.pos(),
		Face:     toBlockFace(r.i8()),
	}

	// the three cursor bytes follow the stack
	p.Held = r.item(3)
	p.CursorX = r.u8()
	p.CursorY = r.u8()
	p.CursorZ = r.u8()

	if r.err != nil {
		return r.err
	}

	c.handler.OnBlockPlace(c, p)
	return nil
}

func decodeSlotSelect(c *Conn, r *fieldReader) error {
	slot := r.i16()
	if r.err != nil {
		return r.err
	}

	c.handler.OnSlotSelect(c, slot)
	return nil
}

func decodeAnimation(c *Conn, _ *fieldReader) error {
	c.handler.OnAnimation(c)
	return nil
}

func decodeEntityAction(c *Conn, r *fieldReader) error {
	p := EntityAction{
		EntityID:  r.varint(),
		Action:    EntityActionType(r.u8()),
		JumpBoost: r.varint(),
	}
	if r.err != nil {
		return r.err
	}

	if p.Action > ActionOpenInventory {
		c.log.Warn("Unknown entity action", zap.Uint8("action", uint8(p.Action)))
		return nil
	}

	c.handler.OnEntityAction(c, p)
	return nil
}

func decodeSteerVehicle(c *Conn, r *fieldReader) error {
	p := SteerVehicle{
		Forward:  r.f32(),
		Sideways: r.f32(),
	}

	flags := r.u8()
	if r.err != nil {
		return r.err
	}

	if flags&0x2 != 0 {
		p.Unmount = true
	} else if flags&0x1 != 0 {
		p.Jump = true
	}

	c.handler.OnSteerVehicle(c, p)
	return nil
}

func decodeWindowClose(c *Conn, r *fieldReader) error {
	window := r.u8()
	if r.err != nil {
		return r.err
	}

	c.handler.OnWindowClose(c, window)
	return nil
}

func decodeWindowClick(c *Conn, r *fieldReader) error {
	p := WindowClick{
		Window:        r.u8(),
		Slot:          r.i16(),
		Button:        r.u8(),
		TransactionID: r.u16(),
		Mode:          r.u8(),
	}
	p.Item = r.item(0)

	if r.err != nil {
		return r.err
	}

	p.Action = clickAction(p.Mode, p.Button, p.Slot)
	if p.Action == ClickUnknown {
		c.log.Warn("Unhandled window click mode",
			zap.Uint8("mode", p.Mode),
			zap.Uint8("button", p.Button),
			zap.Int16("slot", p.Slot))
	}

	c.handler.OnWindowClick(c, p)
	return nil
}

// clickAction maps the mode and button of a window click to its meaning.
// Some combinations are only valid inside or outside the window.
func clickAction(mode, button uint8, slot int16) ClickAction {
	outside := slot == SlotOutside

	switch uint16(mode)<<8 | uint16(button) {
	case 0x0000:
		if outside {
			return ClickLeftOutside
		}
		return ClickLeft
	case 0x0001:
		if outside {
			return ClickRightOutside
		}
		return ClickRight
	case 0x0100:
		return ClickShiftLeft
	case 0x0101:
		return ClickShiftRight
	case 0x0200:
		return ClickNumber1
	case 0x0201:
		return ClickNumber2
	case 0x0202:
		return ClickNumber3
	case 0x0203:
		return ClickNumber4
	case 0x0204:
		return ClickNumber5
	case 0x0205:
		return ClickNumber6
	case 0x0206:
		return ClickNumber7
	case 0x0207:
		return ClickNumber8
	case 0x0208:
		return ClickNumber9
	case 0x0300:
		return ClickMiddle
	case 0x0400:
		if outside {
			return ClickLeftOutsideHoldNothing
		}
		return ClickDropKey
	case 0x0401:
		if outside {
			return ClickRightOutsideHoldNothing
		}
		return ClickCtrlDropKey
	case 0x0500:
		if outside {
			return ClickLeftPaintBegin
		}
	case 0x0501:
		if !outside {
			return ClickLeftPaintProgress
		}
	case 0x0502:
		if outside {
			return ClickLeftPaintEnd
		}
	case 0x0504:
		if outside {
			return ClickRightPaintBegin
		}
	case 0x0505:
		if !outside {
			return ClickRightPaintProgress
		}
	case 0x0506:
		if outside {
			return ClickRightPaintEnd
		}
	case 0x0600:
		return ClickDouble
	}

	return ClickUnknown
}

func decodeConfirmTransaction(c *Conn, r *fieldReader) error {
	p := ConfirmTransaction{
		Window:   r.u8(),
		Action:   r.i16(),
		Accepted: r.boolean(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnConfirmTransaction(c, p)
	return nil
}

func decodeCreativeInventoryAction(c *Conn, r *fieldReader) error {
	p := CreativeInventoryAction{Slot: r.i16()}
	p.Item = r.item(0)
	if r.err != nil {
		return r.err
	}

	p.Action = ClickLeft
	if p.Slot == SlotOutside {
		p.Action = ClickLeftOutside
	}

	c.handler.OnCreativeInventoryAction(c, p)
	return nil
}

func decodeEnchantItem(c *Conn, r *fieldReader) error {
	p := EnchantItem{
		Window:      r.u8(),
		Enchantment: r.u8(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnEnchantItem(c, p)
	return nil
}

func decodeUpdateSign(c *Conn, r *fieldReader) error {
	p := UpdateSign{Position: r.pos()}
	for i := range p.Lines {
		p.Lines[i] = stripQuotes(r.str())
	}

	if r.err != nil {
		return r.err
	}

	c.handler.OnUpdateSign(c, p)
	return nil
}

// stripQuotes removes the first and last character of a sign line, which
// arrives as a JSON string literal.
func stripQuotes(s string) string {
	if len(s) < 2 {
		return ""
	}

	return s[1 : len(s)-1]
}

func decodePlayerAbilities(c *Conn, r *fieldReader) error {
	flags := r.u8()
	p := PlayerAbilities{
		Flying:       flags&0x02 != 0,
		CanFly:       flags&0x04 != 0,
		FlyingSpeed:  r.f32(),
		WalkingSpeed: r.f32(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnPlayerAbilities(c, p)
	return nil
}

func decodeTabComplete(c *Conn, r *fieldReader) error {
	p := TabComplete{
		Text:        r.str(),
		HasPosition: r.boolean(),
	}

	if p.HasPosition {
		p.LookedAt = r.pos()
	}

	if r.err != nil {
		return r.err
	}

	c.handler.OnTabComplete(c, p)
	return nil
}

func decodeClientSettings(c *Conn, r *fieldReader) error {
	p := ClientSettings{
		Locale:       r.str(),
		ViewDistance: r.u8(),
		ChatFlags:    r.u8(),
		ChatColors:   r.boolean(),
		SkinParts:    r.u8(),
	}
	if r.err != nil {
		return r.err
	}

	c.handler.OnClientSettings(c, p)
	return nil
}

func decodeClientStatus(c *Conn, r *fieldReader) error {
	action := ClientStatusAction(r.u8())
	if r.err != nil {
		return r.err
	}

	switch action {
	case StatusRespawn, StatusRequestStats, StatusOpenInventoryAchievement:
		c.handler.OnClientStatus(c, action)
	default:
		c.log.Info("Unknown client status action", zap.Uint8("action", uint8(action)))
	}

	return nil
}

func decodePluginMessage(c *Conn, r *fieldReader) error {
	channel := r.str()
	if r.err != nil {
		return r.err
	}

	if strings.HasPrefix(channel, "MC|") {
		if err := decodeVendorMessage(c, channel, r); err != nil {
			return err
		}

		// vendor payloads may carry trailing garbage
		r.rest()
		return nil
	}

	c.handler.OnPluginMessage(c, channel, r.rest())
	return nil
}

// decodeVendorMessage handles the channels reserved by the game client.
func decodeVendorMessage(c *Conn, channel string, r *fieldReader) error {
	switch channel {
	case "MC|AdvCdm":
		mode := r.u8()
		if r.err != nil {
			return r.err
		}

		if mode != 0 {
			c.log.Info("Unhandled command block mode", zap.Uint8("mode", mode))
			c.reply(c.SendChat(fmt.Sprintf(
				"Failure setting command block command; unhandled mode %d (0x%02x)", mode, mode), ChatSystem))
			r.rest()
			return nil
		}

		p := CommandBlockChange{}
		p.Position.X = int(r.i32())
		p.Position.Y = int(r.i32())
		p.Position.Z = int(r.i32())
		p.Command = r.str()
		if r.err != nil {
			return r.err
		}

		c.handler.OnCommandBlockChange(c, p)

	case "MC|Brand":
		brand := r.str()
		if r.err != nil {
			return r.err
		}

		c.handler.OnBrand(c, brand)
		c.reply(c.SendPluginMessage("MC|Brand", brandPayload))

	case "MC|Beacon":
		primary, secondary := r.i32(), r.i32()
		if r.err != nil {
			return r.err
		}

		c.handler.OnBeaconSelection(c, primary, secondary)

	case "MC|ItemName":
		name := r.str()
		if r.err != nil {
			return r.err
		}

		c.handler.OnItemName(c, name)

	case "MC|TrSel":
		slot := r.i32()
		if r.err != nil {
			return r.err
		}

		c.handler.OnTrade(c, slot)

	default:
		c.log.Info("Unhandled vanilla plugin channel",
			zap.String("channel", channel),
			zap.Int("length", r.remaining()))

		c.handler.OnPluginMessage(c, channel, r.rest())
	}

	return nil
}

// brandPayload is the reply on MC|Brand, a length prefixed string.
var brandPayload = func() []byte {
	w := codec.NewWriter()
	w.WriteString("lodestone")
	return w.Bytes()
}()
