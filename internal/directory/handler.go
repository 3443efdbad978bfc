package directory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	perrors "github.com/meridianhq/portal-backend/internal/errors"
)

// Event is the resolver invocation shape delivered by the API layer.
type Event struct {
	Info      EventInfo      `json:"info"`
	Arguments EventArguments `json:"arguments"`
	Identity  EventIdentity  `json:"identity"`
}

type EventInfo struct {
	FieldName string `json:"fieldName"`
}

type EventArguments struct {
	UserName string `json:"userName"`
}

type EventIdentity struct {
	Username string `json:"username"`
}

// localUserName stands in for the caller identity when running against a
// local profile, where no identity provider is attached.
const localUserName = "testuser"

// QueryHandler authorizes and dispatches user queries by field name.
type QueryHandler struct {
	service *Service
	local   bool
	logger  *zap.Logger
}

func NewQueryHandler(service *Service, local bool, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{service: service, local: local, logger: logger}
}

// Handle serves the 'user' and 'getUser' fields. Every request is
// authorized by looking the caller up in the directory first.
func (h *QueryHandler) Handle(ctx context.Context, event Event) (map[string]any, error) {
	caller, err := h.authorize(ctx, event)
	if err != nil {
		return nil, err
	}

	switch event.Info.FieldName {
	case "user":
		return h.service.Get(ctx, caller)
	case "getUser":
		return h.service.Get(ctx, event.Arguments.UserName)
	}
	return nil, perrors.RequestError{Message: fmt.Sprintf("Unknown request: '%s')", event.Info.FieldName)}
}

func (h *QueryHandler) authorize(ctx context.Context, event Event) (string, error) {
	userName := event.Identity.Username
	if userName == "" {
		if !h.local {
			return "", perrors.RequestError{Message: "Unauthorized"}
		}
		h.logger.Warn("!!! RUNNING ON LOCAL PROFILE UTILIZING HARDCODED USERNAME !!!")
		userName = localUserName
	}

	user, err := h.service.Find(ctx, userName)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", perrors.RequestError{Message: "Unauthorized"}
	}
	return user.UserName, nil
}
