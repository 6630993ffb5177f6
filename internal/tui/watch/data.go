package watch

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/jfarrell/icloud-cli/internal/cache"
	"github.com/jfarrell/icloud-cli/internal/daemon"
)

// Domains lists the cached domains in display order.
var Domains = []string{"calendar", "reminders", "notes", "devices"}

// FetchData reads daemon liveness and per-domain cache state.
func FetchData(store *cache.Store) RefreshDataMsg {
	msg := RefreshDataMsg{Timestamp: time.Now()}

	st := daemon.GetStatus(store, 0)
	msg.Running = st.Running
	msg.PID = st.PID
	msg.LastSync = st.LastSync

	for _, domain := range Domains {
		msg.Domains = append(msg.Domains, domainState(store, domain))
	}
	return msg
}

func domainState(store *cache.Store, domain string) DomainState {
	ds := DomainState{Domain: domain}

	var records []json.RawMessage
	if err := store.Read(domain, &records); err != nil {
		if errors.Is(err, cache.ErrCorrupt) {
			ds.Corrupt = true
		}
		return ds
	}
	ds.Cached = true
	ds.Count = len(records)

	if info, err := os.Stat(store.Path(domain)); err == nil {
		ds.Updated = info.ModTime()
	}
	return ds
}
