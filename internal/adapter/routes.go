package adapter

import (
	"fmt"
	"net/http"

	"github.com/MKhiriev/civic-sync/models"
)

// route returns the method and path replaying an action of type t. The
// switch must stay exhaustive over models.ActionTypes.
func route(t models.ActionType) (method, path string, err error) {
	switch t {
	case models.ActionSubmitIssue:
		return http.MethodPost, "/api/issues", nil
	case models.ActionCastPollResponse:
		return http.MethodPost, "/api/polls/responses", nil
	case models.ActionPostForumReply:
		return http.MethodPost, "/api/forum/replies", nil
	case models.ActionSendMessage:
		return http.MethodPost, "/api/messages", nil
	case models.ActionUpdatePreferences:
		return http.MethodPut, "/api/preferences", nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnknownActionType, t)
	}
}
