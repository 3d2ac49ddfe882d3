package netcode

import "time"

// DefaultPort is the UDP port a host listens on unless told otherwise.
const DefaultPort = 23456

// Config holds lockstep and transport timing.
type Config struct {
	// InputDelay is how many ticks ahead local commands are scheduled.
	InputDelay uint32
	// HashInterval is the tick spacing of digest exchanges.
	HashInterval uint32
	// Redundancy is how many copies of each unreliable frame are sent.
	Redundancy int

	ResendInterval    time.Duration // reliable frame resend period
	WarnTimeout       time.Duration // silence before the waiting state
	DisconnectTimeout time.Duration // silence before the match is dropped
	ConnectTimeout    time.Duration // joiner handshake deadline
	ConnectRetry      time.Duration // CONNECT resend period
	DrainTimeout      time.Duration // wait after game over for final acks
}

// DefaultConfig returns the standard lockstep timings.
func DefaultConfig() Config {
	return Config{
		InputDelay:        2,
		HashInterval:      10,
		Redundancy:        3,
		ResendInterval:    200 * time.Millisecond,
		WarnTimeout:       5 * time.Second,
		DisconnectTimeout: 30 * time.Second,
		ConnectTimeout:    30 * time.Second,
		ConnectRetry:      time.Second,
		DrainTimeout:      5 * time.Second,
	}
}

func (c Config) redundancy() int {
	return max(c.Redundancy, 1)
}
