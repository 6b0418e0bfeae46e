package sync

import "github.com/ocakbasi/order-sync/pkg/logger"

// UnsubscribeFunc tears down a subscription. Safe to call more than
// once; after it returns no callback fires again.
type UnsubscribeFunc func()

// Subscribe starts polling with the given fetch and callbacks and
// returns a handle that stops it. This is the surface-facing entry
// point; it hides the transport, so a push channel could replace the
// poller behind the same signature without touching surface code.
func Subscribe(fetch FetchFunc, config Config, callbacks Callbacks, logger logger.Logger) UnsubscribeFunc {
	poller := NewPoller(fetch, config, callbacks, logger)
	poller.Start()

	return poller.Stop
}
