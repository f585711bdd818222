package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/queries"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const defaultResultsGroup = "ballot-ledger-results-cg"

// ResultsBroadcaster republishes the tally of an office every time a vote for
// it is cast.
type ResultsBroadcaster struct {
	Subscriber    ports.EventSubscriber
	Publisher     ports.EventPublisher
	Tally         queries.TallyAggregator
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	ConsumerGroup string
	Logger        *slog.Logger
}

func (b ResultsBroadcaster) Start(ctx context.Context) error {
	logger := application.ResolveLogger(b.Logger)
	group := strings.TrimSpace(b.ConsumerGroup)
	if group == "" {
		group = defaultResultsGroup
	}
	if err := b.Subscriber.Subscribe(ctx, contractsv1.TopicVoteCast, group, b.HandleVoteCast); err != nil {
		logger.Error("results broadcaster subscribe failed",
			"event", "ballot_results_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", contractsv1.TopicVoteCast,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("results broadcaster subscribed",
		"event", "ballot_results_subscribed",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// HandleVoteCast recomputes the tally for the event's office and publishes it.
func (b ResultsBroadcaster) HandleVoteCast(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(b.Logger)
	var payload contractsv1.VoteCastData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("vote cast payload decode failed",
			"event", "ballot_results_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	position, err := entities.ParsePosition(payload.CandidaturePosition)
	if err != nil {
		return err
	}
	rows, err := b.Tally.Tally(ctx, position)
	if err != nil {
		return err
	}

	items := make([]contractsv1.TallyRowData, 0, len(rows))
	for _, row := range rows {
		items = append(items, contractsv1.TallyRowData{
			CandidatureID:   row.CandidatureID,
			CandidatureCode: row.CandidatureCode,
			CandidateName:   row.CandidateName,
			PartyName:       row.PartyName,
			PartyAcronym:    row.PartyAcronym,
			Votes:           row.Votes,
		})
	}
	data, err := json.Marshal(contractsv1.TallyUpdatedData{
		CandidaturePosition: position.String(),
		CausedByEventID:     event.EventID,
		Rows:                items,
	})
	if err != nil {
		return err
	}
	eventID, err := b.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	update := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        contractsv1.TopicTallyUpdated,
		OccurredAt:       application.Now(b.Clock),
		SourceService:    "ballot-ledger",
		TraceID:          event.TraceID,
		SchemaVersion:    1,
		PartitionKeyPath: "candidature_position",
		PartitionKey:     position.String(),
		Data:             data,
	}
	if err := b.Publisher.Publish(ctx, contractsv1.TopicTallyUpdated, update); err != nil {
		logger.Error("tally update publish failed",
			"event", "ballot_results_publish_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	logger.Debug("tally update published",
		"event", "ballot_results_published",
		"module", application.ModuleName,
		"layer", "worker",
		"position", position.String(),
		"rows", len(items),
	)
	return nil
}
