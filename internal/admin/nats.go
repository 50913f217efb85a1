package admin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// DefaultSubject is where admin commands are published when ADMIN_SUBJECT is unset.
const DefaultSubject = "holdem.admin"

const commandTimeout = 10 * time.Second

// SubscribeNATS executes every JSON Command published on subject. Requests carrying a reply
// subject get the Result back.
func SubscribeNATS(nc *nats.Conn, subject string, exec *Executor, logger *logrus.Logger) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	logger.WithField("subject", subject).Info("listening for admin commands")
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		HandleMessage(exec, msg.Data, func(data []byte) {
			if msg.Reply == "" {
				return
			}
			if err := msg.Respond(data); err != nil {
				logger.WithError(err).Warn("failed to answer admin request")
			}
		})
	})
}

// HandleMessage decodes one admin payload, runs it and passes the encoded Result to reply.
func HandleMessage(exec *Executor, data []byte, reply func([]byte)) {
	var cmd Command
	var res Result
	if err := json.Unmarshal(data, &cmd); err != nil {
		res = Result{Error: "invalid admin command: " + err.Error()}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		res, _ = exec.Execute(ctx, cmd)
		cancel()
	}
	out, err := json.Marshal(res)
	if err != nil {
		out = []byte(`{"ok":false,"error":"failed to encode result"}`)
	}
	reply(out)
}
