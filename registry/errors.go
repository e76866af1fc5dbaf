package registry

import "github.com/samber/oops"

// ErrRoomExists is returned by Create when the named room is already present.
var ErrRoomExists = oops.Code("name_conflict").Errorf("room already exists")

// ErrRoomNotFound is returned by Join, Authenticate and BindAddress when the
// named room has no entry in the registry.
var ErrRoomNotFound = oops.Code("not_found").Errorf("room not found")

// ErrTokenNotFound is returned by Authenticate when the token is not a
// member of the named room.
var ErrTokenNotFound = oops.Code("auth_failure").Errorf("token not recognized")
