package notifier

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tickwallet/tickwallet-daemon/internal/core/ports"
)

type inMemoryNotifier struct {
	mutex *sync.RWMutex
	byKey map[string]ports.Notification
	order map[string]int
	next  int
}

// NewNotificationPublisher returns an in-memory NotificationPublisher. The
// UI shell embedding the wallet drains Active() to render its notification
// area; pushes with an existing key update in place instead of duplicating.
func NewNotificationPublisher() ports.NotificationPublisher {
	return &inMemoryNotifier{
		mutex: &sync.RWMutex{},
		byKey: map[string]ports.Notification{},
		order: map[string]int{},
	}
}

func (n *inMemoryNotifier) Push(notification ports.Notification) {
	if !notification.Persistent {
		log.Infof("%s: %s", notification.Title, notification.Message)
		return
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, ok := n.byKey[notification.Key]; !ok {
		n.order[notification.Key] = n.next
		n.next++
	}
	n.byKey[notification.Key] = notification
}

func (n *inMemoryNotifier) Dismiss(key string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	delete(n.byKey, key)
	delete(n.order, key)
}

func (n *inMemoryNotifier) Active() []ports.Notification {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	keys := make([]string, 0, len(n.byKey))
	for key := range n.byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return n.order[keys[i]] < n.order[keys[j]]
	})

	notifications := make([]ports.Notification, 0, len(keys))
	for _, key := range keys {
		notifications = append(notifications, n.byKey[key])
	}
	return notifications
}
