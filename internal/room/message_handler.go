package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/validator"
	"ctchen222/rally-tracker/pkg/proto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage decodes a command sent over the match stream, applies it and
// returns the reply for the sender: the new state, or the reason it was
// rejected.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) *proto.ServerToClientMessage {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("match.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "match.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		return proto.ErrorMessage(fmt.Errorf("%w: %v", game.ErrInvalidInput, err))
	}
	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message", "match.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		return proto.ErrorMessage(fmt.Errorf("%w: %v", game.ErrInvalidInput, err))
	}
	span.SetAttributes(attribute.String("message.type", message.Type))

	if err := r.dispatch(ctx, &message); err != nil {
		return proto.ErrorMessage(err)
	}
	return proto.StateMessage(r.View())
}

func (r *Room) dispatch(ctx context.Context, message *proto.ClientToServerMessage) error {
	switch message.Type {
	case proto.CommandChooseServer:
		return r.ChooseInitialServer(ctx, message.PlayerID)
	case proto.CommandSelectPlayers:
		return r.SelectPlayers(ctx, message.Hitter, message.Receiver)
	case proto.CommandSelectCell:
		return r.SelectCell(ctx, message.Zone)
	case proto.CommandSelectShotType:
		return r.SelectShotType(ctx, message.ShotType)
	case proto.CommandSubmit:
		_, err := r.Submit(ctx, message.Result)
		return err
	case proto.CommandUndo:
		_, err := r.Undo(ctx)
		return err
	case proto.CommandReset:
		return r.Reset(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", game.ErrInvalidInput, message.Type)
	}
}
