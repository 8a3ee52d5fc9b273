package node

import "log/slog"

// Observer receives presentation notifications from running nodes. Calls
// arrive on node goroutines, sometimes while the structural read lock is
// held, so implementations must return quickly and must not mutate the
// workspace.
type Observer interface {
	NodeStateChanged(n *Node, s State)
	NodeProgressChanged(n *Node, progress float64)
	NodeLogged(n *Node, level slog.Level, msg string)
	EdgeActivityChanged(e *Edge, active bool)
}

// Observers fans notifications out to every member.
type Observers []Observer

func (o Observers) NodeStateChanged(n *Node, s State) {
	for _, obs := range o {
		obs.NodeStateChanged(n, s)
	}
}

func (o Observers) NodeProgressChanged(n *Node, progress float64) {
	for _, obs := range o {
		obs.NodeProgressChanged(n, progress)
	}
}

func (o Observers) NodeLogged(n *Node, level slog.Level, msg string) {
	for _, obs := range o {
		obs.NodeLogged(n, level, msg)
	}
}

func (o Observers) EdgeActivityChanged(e *Edge, active bool) {
	for _, obs := range o {
		obs.EdgeActivityChanged(e, active)
	}
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) NodeStateChanged(*Node, State) {}
func (NopObserver) NodeProgressChanged(*Node, float64) {}
func (NopObserver) NodeLogged(*Node, slog.Level, string) {}
func (NopObserver) EdgeActivityChanged(*Edge, bool) {}
