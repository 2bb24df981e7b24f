package notify

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of sending them. Parameter
// values carry codes and reset links, so they only appear at Debug.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	keys := make([]string, 0, len(msg.Params))
	for k := range msg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.log.Info("notification delivered to log",
		zap.String("template", string(msg.Template)),
		zap.String("to", msg.To),
		zap.Strings("params", keys))
	s.log.Debug("notification content",
		zap.String("template", string(msg.Template)),
		zap.Any("params", msg.Params))
	return nil
}
