// Package sink provides ready-made subscribers for the hub: console, file,
// and metrics variants. The hub knows none of them by name.
package sink

import (
	log "github.com/sirupsen/logrus"

	"notifyhub/internal/hub"
	"notifyhub/internal/logging"
)

// Console logs every notification through the process logger.
type Console struct {
	id string
}

func NewConsole(id string) *Console {
	if id == "" {
		id = "console"
	}
	return &Console{id: id}
}

func (c *Console) ID() string { return c.id }

func (c *Console) Notify(n hub.Notification) error {
	logging.L().WithFields(log.Fields{
		"seq":   n.Seq,
		"state": n.State,
	}).Info("state changed")
	return nil
}
