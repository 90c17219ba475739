package app

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "focusflow/pkg/logx"
)

// sdNotifier reports lifecycle to systemd. Outside systemd every call is a
// no-op because NOTIFY_SOCKET is unset.
type sdNotifier struct {
	log      logx.Logger
	watchdog time.Duration
	notify   func(state string) (bool, error)
}

func newSDNotifier(log logx.Logger) *sdNotifier {
	n := &sdNotifier{
		log:    log,
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil {
		n.watchdog = d
	}
	return n
}

func (n *sdNotifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case sent:
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}

func (n *sdNotifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *sdNotifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Watchdog pings when WatchdogSec is configured for the unit.
func (n *sdNotifier) Watchdog() {
	if n.watchdog > 0 {
		n.send(daemon.SdNotifyWatchdog)
	}
}
