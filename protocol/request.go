package protocol

import (
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

// Serverbound packets. Each is decoded completely before its handler
// method is called.

type Handshake struct {
	ProtocolVersion uint32
	ServerAddress   string
	ServerPort      uint16
	NextState       uint32
}

// ProtocolVersion is the only client version accepted for login.
const ProtocolVersion = 47

type UseEntityType uint32

const (
	UseEntityInteract   UseEntityType = 0
	UseEntityAttack     UseEntityType = 1
	UseEntityInteractAt UseEntityType = 2
)

type UseEntity struct {
	Target uint32
	Type   UseEntityType

	// Target position, only set for UseEntityInteractAt
	TargetX, TargetY, TargetZ float32
}

type PlayerPosition struct {
	X, Y, Z  float64
	OnGround bool
}

type PlayerLook struct {
	Yaw, Pitch float32
	OnGround   bool
}

type PlayerPositionLook struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

// BlockFace is the face of a block a player clicked. Unknown values are
// normalized to FaceNone.
type BlockFace int8

const (
	FaceNone   BlockFace = -1
	FaceYMinus BlockFace = 0
	FaceYPlus  BlockFace = 1
	FaceZMinus BlockFace = 2
	FaceZPlus  BlockFace = 3
	FaceXMinus BlockFace = 4
	FaceXPlus  BlockFace = 5
)

func toBlockFace(v int8) BlockFace {
	if v < int8(FaceYMinus) || v > int8(FaceXPlus) {
		return FaceNone
	}

	return BlockFace(v)
}

type BlockDig struct {
	Status   uint8
	Position codec.Position
	Face     BlockFace
}

type BlockPlace struct {
	Position codec.Position
	Face     BlockFace
	Held     item.Item

	CursorX, CursorY, CursorZ uint8
}

type EntityActionType uint8

const (
	ActionCrouch        EntityActionType = 0
	ActionUncrouch      EntityActionType = 1
	ActionLeaveBed      EntityActionType = 2
	ActionStartSprint   EntityActionType = 3
	ActionStopSprint    EntityActionType = 4
	ActionHorseJump     EntityActionType = 5
	ActionOpenInventory EntityActionType = 6
)

type EntityAction struct {
	EntityID  uint32
	Action    EntityActionType
	JumpBoost uint32
}

type SteerVehicle struct {
	Forward, Sideways float32
	Jump, Unmount     bool
}

// SlotOutside is the slot number of a click outside the window.
const SlotOutside int16 = -999

// ClickAction is the meaning of a window click, derived from its mode,
// button and slot.
type ClickAction int

const (
	ClickUnknown ClickAction = iota
	ClickLeft
	ClickRight
	ClickShiftLeft
	ClickShiftRight
	ClickNumber1
	ClickNumber2
	ClickNumber3
	ClickNumber4
	ClickNumber5
	ClickNumber6
	ClickNumber7
	ClickNumber8
	ClickNumber9
	ClickMiddle
	ClickDropKey
	ClickCtrlDropKey
	ClickLeftOutside
	ClickRightOutside
	ClickLeftOutsideHoldNothing
	ClickRightOutsideHoldNothing
	ClickLeftPaintBegin
	ClickLeftPaintProgress
	ClickLeftPaintEnd
	ClickRightPaintBegin
	ClickRightPaintProgress
	ClickRightPaintEnd
	ClickDouble
)

type WindowClick struct {
	Window        uint8
	Slot          int16
	Button        uint8
	TransactionID uint16
	Mode          uint8
	Item          item.Item
	Action        ClickAction
}

type ConfirmTransaction struct {
	Window   uint8
	Action   int16
	Accepted bool
}

type CreativeInventoryAction struct {
	Slot   int16
	Item   item.Item
	Action ClickAction
}

type EnchantItem struct {
	Window      uint8
	Enchantment uint8
}

type UpdateSign struct {
	Position codec.Position
	Lines    [4]string
}

type PlayerAbilities struct {
	Flying       bool
	CanFly       bool
	FlyingSpeed  float32
	WalkingSpeed float32
}

type TabComplete struct {
	Text        string
	HasPosition bool
	LookedAt    codec.Position
}

type ClientSettings struct {
	Locale       string
	ViewDistance uint8
	ChatFlags    uint8
	ChatColors   bool
	SkinParts    uint8
}

type ClientStatusAction uint8

const (
	StatusRespawn                  ClientStatusAction = 0
	StatusRequestStats             ClientStatusAction = 1
	StatusOpenInventoryAchievement ClientStatusAction = 2
)

// CommandBlockChange is the vendor message sent when a player edits a
// command block.
type CommandBlockChange struct {
	Position codec.Position
	Command  string
}
