package trigger

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Subscription is the part of *pubsub.Subscription the receiver uses.
type Subscription interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// storageNotification is the subset of a Cloud Storage object
// notification the receiver cares about.
type storageNotification struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Receiver consumes storage notifications and fires a pipeline per
// message. Messages are processed one at a time.
type Receiver struct {
	sub    Subscription
	run    PipelineFunc
	logger *zap.Logger
}

// NewReceiver builds a Receiver over an already-configured
// subscription. Callers should set MaxOutstandingMessages to 1 on the
// subscription's ReceiveSettings so runs never overlap.
func NewReceiver(sub Subscription, run PipelineFunc, logger *zap.Logger) *Receiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{sub: sub, run: run, logger: logger}
}

// Run blocks, handling messages until the context is cancelled. Every
// message is acked; a malformed payload is logged and the pipeline
// still runs, since the notification only tells us data changed, not
// what to do about it.
func (r *Receiver) Run(ctx context.Context) error {
	r.logger.Info("notification receiver started")
	return r.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		defer msg.Ack()

		var note storageNotification
		if err := json.Unmarshal(msg.Data, &note); err != nil {
			r.logger.Warn("unparseable storage notification", zap.Error(err))
		} else {
			r.logger.Info("storage notification received",
				zap.String("bucket", note.Bucket),
				zap.String("object", note.Name),
			)
		}
		r.run(ctx)
	})
}
