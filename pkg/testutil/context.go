package testutil

import (
	"net/http"

	id "carelink/pkg/domain"
	"carelink/pkg/requestcontext"
)

// AsUser attaches the given identity claims to the request context, the same
// way the auth middleware would for an authenticated request.
func AsUser(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
