package workflow

import (
	"context"
	"fmt"

	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/notify"
)

// Deliver sends the compiled document through the notifier in context.
// It runs as its own stage when Options.DeliveryStage is set. A retry after
// a partial fan-out failure only sends to the channels that failed.
func Deliver(ctx context.Context, s State) (State, error) {
	return deliver(ctx, s, StageDeliver)
}

func deliver(ctx context.Context, s State, stage string) (State, error) {
	if s.Delivery != nil {
		return s, nil
	}
	opts := OptionsFromContext(ctx)
	if opts.NotifyPolicy == PolicyDisabled {
		return s, nil
	}
	if err := s.Validate(RequireDocument); err != nil {
		return s, fail(stage, err)
	}
	log := rfcontext.Observer(ctx).Log(ctx)
	n := notify.NotifierFromContext(ctx)
	if n == nil {
		if opts.NotifyPolicy == PolicyWarn {
			log.WarnContext(ctx, "report not delivered: no notifier configured")
			s.Warn("delivery skipped: no notifier configured")
			return s, nil
		}
		return s, fail(stage, fmt.Errorf("%w: notifier", ErrNotConfigured))
	}

	msg := notify.NewReport(s.RunID, s.PropertyRef, s.FinalDocument)
	msg.Subject = opts.Subject
	msg.Delivered = s.PartialDelivery

	ack, err := n.Send(ctx, msg)
	if err != nil {
		s.PartialDelivery = ack.Delivered
		if ctx.Err() != nil {
			return s, fail(stage, ctx.Err())
		}
		if opts.NotifyPolicy == PolicyWarn {
			log.WarnContext(ctx, "report delivery failed", "error", err)
			s.Warn("delivery failed: %v", err)
			return s, nil
		}
		return s, &StageError{Stage: stage, Kind: KindDelivery, Err: err}
	}

	s.PartialDelivery = nil
	s.Delivery = &ack
	log.InfoContext(ctx, "report delivered", "channel", ack.Channel, "recipients", len(ack.Recipients))
	return s, nil
}
