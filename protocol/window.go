package protocol

import (
	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

// WindowType identifies the kind of an inventory window. The player's own
// inventory has a negative type and is never opened by the server.
type WindowType int8

const (
	WindowInventory   WindowType = -1
	WindowChest       WindowType = 0
	WindowWorkbench   WindowType = 1
	WindowFurnace     WindowType = 2
	WindowDropSpenser WindowType = 3
	WindowEnchantment WindowType = 4
	WindowBrewery     WindowType = 5
	WindowNPCTrade    WindowType = 6
	WindowBeacon      WindowType = 7
	WindowAnvil       WindowType = 8
	WindowHopper      WindowType = 9
	WindowDropper     WindowType = 10
	WindowAnimalChest WindowType = 11
)

var windowTypeNames = map[WindowType]string{
	WindowChest:       "minecraft:chest",
	WindowWorkbench:   "minecraft:crafting_table",
	WindowFurnace:     "minecraft:furnace",
	WindowDropSpenser: "minecraft:dispenser",
	WindowEnchantment: "minecraft:enchanting_table",
	WindowBrewery:     "minecraft:brewing_stand",
	WindowNPCTrade:    "minecraft:villager",
	WindowBeacon:      "minecraft:beacon",
	WindowAnvil:       "minecraft:anvil",
	WindowHopper:      "minecraft:hopper",
	WindowDropper:     "minecraft:dropper",
	WindowAnimalChest: "EntityHorse",
}

// Name is the type string the client expects when a window opens.
func (t WindowType) Name() string {
	return windowTypeNames[t]
}

// Window is an open container as the client sees it.
type Window struct {
	ID    int8
	Type  WindowType
	Title string

	// Slots is the number of slots that belong to the container, not to
	// the player's inventory.
	Slots uint8

	// EntityID is the horse whose inventory an animal chest shows.
	EntityID int32
}

// SendOpenWindow opens w. Inventory windows are opened by the client
// itself and are skipped.
func (c *Conn) SendOpenWindow(win Window) error {
	if win.Type < 0 {
		return nil
	}

	return c.WritePacket(outOpenWindow, func(w *codec.Writer) error {
		w.WriteInt8(win.ID)
		w.WriteString(win.Type.Name())
		w.WriteString(chat.Text(win.Title))

		switch win.Type {
		case WindowWorkbench, WindowEnchantment, WindowAnvil:
			w.WriteUint8(0)
		default:
			w.WriteUint8(win.Slots)
		}

		if win.Type == WindowAnimalChest {
			w.WriteInt32(win.EntityID)
		}
		return nil
	})
}

func (c *Conn) SendCloseWindow(id int8) error {
	return c.WritePacket(outCloseWindow, func(w *codec.Writer) error {
		w.WriteInt8(id)
		return nil
	})
}

func (c *Conn) SendSetSlot(window int8, slot int16, it item.Item) error {
	return c.WritePacket(outSetSlot, func(w *codec.Writer) error {
		w.WriteInt8(window)
		w.WriteInt16(slot)
		return item.Write(w, it)
	})
}

// SendWindowItems replaces the content of every slot of a window.
func (c *Conn) SendWindowItems(window int8, slots []item.Item) error {
	return c.WritePacket(outWindowItems, func(w *codec.Writer) error {
		w.WriteInt8(window)
		w.WriteInt16(int16(len(slots)))

		for _, it := range slots {
			if err := item.Write(w, it); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Conn) SendWindowProperty(window int8, property, value int16) error {
	return c.WritePacket(outWindowProperty, func(w *codec.Writer) error {
		w.WriteInt8(window)
		w.WriteInt16(property)
		w.WriteInt16(value)
		return nil
	})
}
