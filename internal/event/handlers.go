package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// MessageHandler consumes inbound chat messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.InboundMessage)
}

// MessagesUpsertHandler feeds every message of a messages.upsert batch to the dispatcher.
type MessagesUpsertHandler struct {
	messages MessageHandler
}

// NewMessagesUpsertHandler creates a MessagesUpsertHandler.
func NewMessagesUpsertHandler(messages MessageHandler) *MessagesUpsertHandler {
	return &MessagesUpsertHandler{messages: messages}
}

func (h *MessagesUpsertHandler) Event() string { return domain.EventMessagesUpsert }

func (h *MessagesUpsertHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var upsert domain.MessagesUpsert
	if err := json.Unmarshal(payload, &upsert); err != nil {
		return fmt.Errorf("decode messages.upsert: %w", err)
	}
	for i := range upsert.Messages {
		msg := &upsert.Messages[i]
		if msg.Message == nil || msg.Key.RemoteJID == "" {
			continue
		}
		h.messages.HandleMessage(ctx, msg)
	}
	return nil
}

// GroupStore is the group directory written by group events.
type GroupStore interface {
	Upsert(ctx context.Context, meta domain.GroupMetadata) error
	ApplySubject(ctx context.Context, id, subject string) error
	ApplyParticipants(ctx context.Context, update domain.ParticipantsUpdate) error
}

// GroupsUpsertHandler stores full group metadata announced by the gateway.
type GroupsUpsertHandler struct {
	groups GroupStore
	logger *slog.Logger
}

// NewGroupsUpsertHandler creates a GroupsUpsertHandler.
func NewGroupsUpsertHandler(groups GroupStore, logger *slog.Logger) *GroupsUpsertHandler {
	return &GroupsUpsertHandler{groups: groups, logger: logger}
}

func (h *GroupsUpsertHandler) Event() string { return domain.EventGroupsUpsert }

func (h *GroupsUpsertHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var metas []domain.GroupMetadata
	if err := json.Unmarshal(payload, &metas); err != nil {
		return fmt.Errorf("decode groups.upsert: %w", err)
	}
	for _, meta := range metas {
		if err := h.groups.Upsert(ctx, meta); err != nil {
			return err
		}
		h.logger.Info("GROUP_UPSERTED", slog.String("group", meta.ID), slog.Int("members", len(meta.Participants)))
	}
	return nil
}

// GroupsUpdateHandler merges partial group updates (subject changes).
type GroupsUpdateHandler struct {
	groups GroupStore
}

// NewGroupsUpdateHandler creates a GroupsUpdateHandler.
func NewGroupsUpdateHandler(groups GroupStore) *GroupsUpdateHandler {
	return &GroupsUpdateHandler{groups: groups}
}

func (h *GroupsUpdateHandler) Event() string { return domain.EventGroupsUpdate }

func (h *GroupsUpdateHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var updates []domain.GroupMetadata
	if err := json.Unmarshal(payload, &updates); err != nil {
		return fmt.Errorf("decode groups.update: %w", err)
	}
	for _, update := range updates {
		if update.ID == "" {
			continue
		}
		if err := h.groups.ApplySubject(ctx, update.ID, update.Subject); err != nil {
			return err
		}
	}
	return nil
}

// ParticipantsHandler applies membership changes to the group directory.
type ParticipantsHandler struct {
	groups GroupStore
	logger *slog.Logger
}

// NewParticipantsHandler creates a ParticipantsHandler.
func NewParticipantsHandler(groups GroupStore, logger *slog.Logger) *ParticipantsHandler {
	return &ParticipantsHandler{groups: groups, logger: logger}
}

func (h *ParticipantsHandler) Event() string { return domain.EventParticipantsUpdate }

func (h *ParticipantsHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var update domain.ParticipantsUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("decode group-participants.update: %w", err)
	}
	if update.ID == "" {
		h.logger.Warn("PARTICIPANTS_UPDATE_INVALID", slog.String("payload", string(payload)))
		return nil
	}
	h.logger.Info("PARTICIPANTS_UPDATE",
		slog.String("group", update.ID),
		slog.String("action", update.Action),
		slog.Int("count", len(update.Participants)),
	)
	return h.groups.ApplyParticipants(ctx, update)
}

// VoteScorer credits quiz votes.
type VoteScorer interface {
	ScoreVote(ctx context.Context, vote domain.PollVote) error
}

// PollVoteHandler forwards poll votes to the quiz scorer.
type PollVoteHandler struct {
	scorer VoteScorer
}

// NewPollVoteHandler creates a PollVoteHandler.
func NewPollVoteHandler(scorer VoteScorer) *PollVoteHandler {
	return &PollVoteHandler{scorer: scorer}
}

func (h *PollVoteHandler) Event() string { return domain.EventPollVote }

func (h *PollVoteHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var vote domain.PollVote
	if err := json.Unmarshal(payload, &vote); err != nil {
		return fmt.Errorf("decode poll.vote: %w", err)
	}
	return h.scorer.ScoreVote(ctx, vote)
}

// LogHandler only records that an event happened.
type LogHandler struct {
	name   string
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler for name.
func NewLogHandler(name string, logger *slog.Logger) *LogHandler {
	return &LogHandler{name: name, logger: logger}
}

func (h *LogHandler) Event() string { return h.name }

func (h *LogHandler) Handle(_ context.Context, payload json.RawMessage) error {
	h.logger.Info("EVENT_RECEIVED", slog.String("event", h.name), slog.Int("bytes", len(payload)))
	return nil
}

// LoggedEvents are acknowledged without further processing.
var LoggedEvents = []string{
	domain.EventCall,
	domain.EventMessagesReaction,
	domain.EventBlocklistSet,
	domain.EventBlocklistUpdate,
	domain.EventChatsUpdate,
}
