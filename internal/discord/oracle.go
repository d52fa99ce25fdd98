package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Oracle answers tracked-role membership questions against live guild state.
// The bot may not share every source guild; an unknown guild or absent user
// is reported as plain false rather than an error.
type Oracle struct {
	rest   rest.Rest
	logger *zap.Logger
}

// NewOracle creates a membership oracle backed by the Discord REST API.
func NewOracle(restClient rest.Rest, logger *zap.Logger) *Oracle {
	return &Oracle{
		rest:   restClient,
		logger: logger.Named("oracle"),
	}
}

// HasRole reports whether the user is currently a member of the guild and
// that membership includes the given role.
func (o *Oracle) HasRole(ctx context.Context, guildID, userID, roleID uint64) (bool, error) {
	member, err := o.rest.GetMember(snowflake.ID(guildID), snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, err
	}

	for _, id := range member.RoleIDs {
		if uint64(id) == roleID {
			return true, nil
		}
	}

	return false, nil
}

// isNotFound reports whether the error is a platform 404: the guild is
// unknown to this bot or the user is not a member.
func isNotFound(err error) bool {
	var restErr rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}

	return false
}
