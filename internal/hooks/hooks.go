package hooks

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/meridianhq/portal-backend/internal/directory"
	perrors "github.com/meridianhq/portal-backend/internal/errors"
)

const (
	preTokenGenPrefix      = "TokenGeneration"
	postConfirmationPrefix = "PostConfirmation"
	postAuthPrefix         = "PostAuthentication"
)

// supportedGroups lists the group names that may be injected into issued
// tokens. Anything else carried in the custom:groups attribute is ignored.
var supportedGroups = map[string]struct{}{
	"SYSADMIN": {},
}

// Handler reacts to identity-provider lifecycle triggers. Sign-up and
// sign-in triggers sync the user into the directory, token generation
// triggers augment the token's group claims.
type Handler struct {
	directory *directory.Service
	prefix    string
	logger    *zap.Logger
}

// NewHandler creates a hook handler. groupPrefix is the environment prefix
// stripped from incoming custom group names, e.g. "DEV_".
func NewHandler(dir *directory.Service, groupPrefix string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{directory: dir, prefix: groupPrefix, logger: logger}
}

// Handle dispatches on the trigger source. Unrecognised triggers are echoed
// back unchanged so the provider flow is never blocked.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (any, error) {
	var header events.CognitoEventUserPoolsHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, perrors.RequestError{Message: "malformed trigger event"}
	}

	h.logger.Debug("identity trigger", zap.String("triggerSource", header.TriggerSource))

	switch {
	case strings.HasPrefix(header.TriggerSource, preTokenGenPrefix):
		return h.augmentToken(raw)
	case strings.HasPrefix(header.TriggerSource, postConfirmationPrefix),
		strings.HasPrefix(header.TriggerSource, postAuthPrefix):
		var event events.CognitoEventUserPoolsPostConfirmation
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, perrors.RequestError{Message: "malformed trigger event"}
		}
		attrs := attributesFrom(event.Request.UserAttributes)
		if err := h.directory.Upsert(ctx, event.UserName, attrs); err != nil {
			return nil, err
		}
		return raw, nil
	}
	return raw, nil
}

func (h *Handler) augmentToken(raw json.RawMessage) (events.CognitoEventUserPoolsPreTokenGen, error) {
	var event events.CognitoEventUserPoolsPreTokenGen
	if err := json.Unmarshal(raw, &event); err != nil {
		return event, perrors.RequestError{Message: "malformed trigger event"}
	}

	custom := h.ParseCustomGroups(event.Request.UserAttributes["custom:groups"])

	config := event.Request.GroupConfiguration
	groups := append([]string{}, config.GroupsToOverride...)
	groups = append(groups, intersect(custom, supportedGroups)...)

	event.Response.ClaimsOverrideDetails = events.ClaimsOverrideDetails{
		GroupOverrideDetails: events.GroupConfiguration{
			GroupsToOverride:   groups,
			IAMRolesToOverride: config.IAMRolesToOverride,
			PreferredRole:      config.PreferredRole,
		},
	}
	return event, nil
}

// ParseCustomGroups splits a bracketed, comma separated group attribute and
// strips the environment prefix from each entry.
func (h *Handler) ParseCustomGroups(customGroups string) map[string]struct{} {
	result := map[string]struct{}{}
	if customGroups == "" {
		return result
	}

	trimmed := strings.TrimSpace(customGroups)
	trimmed = strings.Trim(trimmed, "[")
	trimmed = strings.Trim(trimmed, "]")
	for _, part := range strings.Split(trimmed, ",") {
		group := strings.TrimPrefix(strings.TrimSpace(part), h.prefix)
		result[group] = struct{}{}
	}
	return result
}

func intersect(groups, allowed map[string]struct{}) []string {
	var out []string
	for g := range groups {
		if _, ok := allowed[g]; ok {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

func attributesFrom(userAttributes map[string]string) directory.Attributes {
	return directory.Attributes{
		Email:      userAttributes["email"],
		Name:       userAttributes["name"],
		FamilyName: userAttributes["family_name"],
		GivenName:  userAttributes["given_name"],
	}
}
