package signal

import "github.com/dkeye/chatrelay/internal/core"

func (ctl *SignalWSController) handlePing(id core.ConnID) {
	ctl.Hub.SendTo(id, core.EventPong, core.Empty{})
}
