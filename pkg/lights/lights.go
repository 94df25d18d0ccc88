// Package lights tracks the simulated room lights the assistant can switch.
package lights

import "fmt"

// Room names a controllable light.
type Room string

const (
	Bathroom Room = "Bathroom"
	Bedroom  Room = "Bedroom"
	Kitchen  Room = "Kitchen"
)

// Rooms returns the fixed set of rooms in schema order.
func Rooms() []Room {
	return []Room{Bathroom, Kitchen, Bedroom}
}

// Home holds the on/off state of every room. It is not safe for concurrent use.
type Home struct {
	state map[Room]bool
}

// NewHome returns a Home with every light switched off.
func NewHome() *Home {
	state := make(map[Room]bool, len(Rooms()))
	for _, room := range Rooms() {
		state[room] = false
	}
	return &Home{state: state}
}

// IsOn reports the light state of room and whether the room exists.
func (h *Home) IsOn(room string) (on bool, ok bool) {
	on, ok = h.state[Room(room)]
	return on, ok
}

// Toggle sets the light in room to on and returns a message for the model.
// Unknown rooms and no-op requests are reported in the message, not as errors.
func (h *Home) Toggle(room string, on bool) string {
	current, ok := h.state[Room(room)]
	if !ok {
		return fmt.Sprintf("Unable to find the room: %s", room)
	}
	if current == on {
		return fmt.Sprintf("%s light is already %s.", room, onOff(on))
	}
	h.state[Room(room)] = on
	return fmt.Sprintf("%s light is now switched %s.", room, onOff(on))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
