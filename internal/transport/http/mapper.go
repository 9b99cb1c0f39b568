package http

import (
	"encoding/json"

	"github.com/mushycosmas/kariakooshop/internal/core"
	"github.com/mushycosmas/kariakooshop/internal/proto"
)

// inboundToCommand validates an inbound envelope and maps it to a hub
// command. Validation happens here, before any side effect.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.ConversationID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversation_id is required"}, nil
		}
		return &core.Command{
			Kind:           core.CommandJoinConversation,
			ConversationID: join.ConversationID,
		}, nil, nil
	case proto.InboundTypeLeave:
		var leave proto.JoinData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.ConversationID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversation_id is required"}, nil
		}
		return &core.Command{
			Kind:           core.CommandLeaveConversation,
			ConversationID: leave.ConversationID,
		}, nil, nil
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.ConversationID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversation_id is required"}, nil
		}
		if send.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &core.Command{
			Kind:           core.CommandSendMessage,
			ConversationID: send.ConversationID,
			Text:           send.Text,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  eventMessage(event.Message),
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserJoined,
			Data: proto.EventUserJoined{
				ConversationID: event.ConversationID,
				User:           event.User,
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserLeft,
			Data: proto.EventUserLeft{
				ConversationID: event.ConversationID,
				User:           event.User,
			},
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, eventMessage(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				ConversationID: event.ConversationID,
				Messages:       messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Sender:         msg.SenderName,
		Role:           msg.SenderRole,
		Text:           msg.Text,
		SentAt:         msg.SentAt.UnixMilli(),
	}
}
