package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect request lifecycle events and publish test events on a local bus`,
}

var listEventTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List request event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.RequestEventTypes {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test request event",
	Long:  `Publish a request event to a local event bus with a logging subscriber, for debugging handlers`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventRequestID string
	eventActorID   string
	eventStatus    string
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if !events.IsRequestEventType(eventType) {
		return fmt.Errorf("unknown event type %q, expected one of %s", eventType, strings.Join(events.RequestEventTypes, ", "))
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)

	bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	event := events.NewRequestEvent(eventType, eventRequestID, eventActorID, eventStatus, 1)
	lg.Info("publishing test event", "event_type", eventType, "event_id", event.ID)

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventRequestID, "request-id", "req-1", "Request id carried by the event")
	publishEventCmd.Flags().StringVar(&eventActorID, "actor-id", "manager-1", "Actor id carried by the event")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "PENDING", "Request status carried by the event")

	eventCmd.AddCommand(listEventTypesCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
