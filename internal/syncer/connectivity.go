package syncer

import "github.com/asteroid-belt/stash/internal/log"

// WatchConnectivity consumes a reachability feed and triggers a sync on
// every transition into the connected state. Repeated "connected"
// readings while already online do not trigger.
//
// The returned stop function ends the watch; closing the feed channel
// does the same.
func (e *Engine) WatchConnectivity(status <-chan bool) (stop func()) {
	stopCh := make(chan struct{})

	go func() {
		connected := false
		for {
			select {
			case <-stopCh:
				return
			case online, ok := <-status:
				if !ok {
					return
				}
				if online && !connected {
					log.Printf("sync: connectivity regained\n")
					e.TriggerSync("connectivity-regained")
				}
				connected = online
			}
		}
	}()

	return func() { close(stopCh) }
}
