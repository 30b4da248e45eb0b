package alert

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/spendguard/spendguard/internal/metrics"
	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/queue"
	"github.com/spendguard/spendguard/internal/service"
)

// RegisterHandlers wires the alert evaluation handler and the dead-letter
// consumer onto a router. The live handler's errors flow through the
// router's retry middleware; once retries are exhausted the message is
// republished to the dead-letter topic, where the second handler persists
// it for operator inspection.
func RegisterHandlers(
	router *message.Router,
	subscriber message.Subscriber,
	evaluator *Evaluator,
	storage service.Storage,
	logger *slog.Logger,
) {
	if logger == nil {
		logger = slog.Default()
	}

	router.AddConsumerHandler(
		"evaluate-transaction",
		queue.TopicTransactionCreated,
		subscriber,
		func(msg *message.Message) error {
			job, err := model.UnmarshalJob(msg.Payload)
			if err != nil {
				metrics.JobsFailed.Inc()
				return err
			}

			event, err := evaluator.Evaluate(msg.Context(), job)
			if err != nil {
				metrics.JobsFailed.Inc()
				logger.Error("job evaluation failed",
					"message_uuid", msg.UUID,
					"transaction_id", job.TransactionID,
					"error", err)
				return err
			}

			metrics.JobsProcessed.Inc()
			if event != nil {
				logger.Info("alert emitted",
					"message_uuid", msg.UUID,
					"user_id", event.UserID,
					"category", event.Category)
			}
			return nil
		},
	)

	router.AddConsumerHandler(
		"persist-dead-jobs",
		queue.TopicDeadLetter,
		subscriber,
		func(msg *message.Message) error {
			dead := &model.DeadJob{
				UUID:    msg.UUID,
				Payload: string(msg.Payload),
				Reason:  msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			}
			if err := storage.SaveDeadJob(msg.Context(), dead); err != nil {
				// Returning the error keeps the dead-letter message on the
				// stream until the store is reachable again.
				return err
			}
			metrics.DeadJobs.Inc()
			return nil
		},
	)
}
