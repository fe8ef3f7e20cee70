package notify

import "fmt"

// Publisher delivers an event to every subscriber of a channel. Delivery is
// best-effort: publishing after a trade commit never rolls the commit back,
// and a failed delivery is logged, not returned.
type Publisher interface {
	Publish(channel string, event any)
}

// UserChannel is the per-user channel trade notifications go to.
func UserChannel(userID uint) string {
	return fmt.Sprintf("trading_user_%d", userID)
}

// RoomChannel is the shared channel for room/market broadcasts.
func RoomChannel(room string) string {
	return "trading_" + room
}

// Fanout publishes each event to every wrapped publisher.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(channel string, event any) {
	for _, p := range f {
		p.Publish(channel, event)
	}
}
