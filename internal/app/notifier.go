package app

import (
	"context"

	"cf_solved_bot/internal/domain/chat"

	"github.com/sirupsen/logrus"
)

// FanOutNotifier sends to a primary destination and, best effort, to mirrors.
// Only the primary's error is reported to the caller.
type FanOutNotifier struct {
	primary chat.Notifier
	mirrors []chat.Notifier
	logger  *logrus.Entry
}

func NewFanOutNotifier(primary chat.Notifier, logger *logrus.Entry, mirrors ...chat.Notifier) *FanOutNotifier {
	return &FanOutNotifier{primary: primary, mirrors: mirrors, logger: logger}
}

func (f *FanOutNotifier) NotifySolved(ctx context.Context, notice chat.SolvedNotice) error {
	if err := f.primary.NotifySolved(ctx, notice); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.NotifySolved(ctx, notice); err != nil {
			f.logger.WithError(err).WithField("handle", notice.Handle).Warn("Mirror notifier failed")
		}
	}
	return nil
}
