package model

// Channel names a change signal. Signals carry no payload: subscribers re-read state.
type Channel string

const (
	ChannelCartChanged Channel = "cart-changed"
	ChannelAuthChanged Channel = "auth-changed"
)

// Channels lists every known channel.
var Channels = []Channel{ChannelCartChanged, ChannelAuthChanged}

// Publisher emits change signals.
type Publisher interface {
	Publish(ch Channel)
}
