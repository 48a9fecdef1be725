package app

import "github.com/dkeye/chatrelay/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	Disconnect
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(conn core.ConnID) BackpressureAction
}

type SimplePolicy struct {
	DisconnectSlow bool
}

func (p SimplePolicy) OnBackPressure(core.ConnID) BackpressureAction {
	if p.DisconnectSlow {
		return Disconnect
	}
	return DropFrame
}
