package models

type IdentityKind string

const (
	IdentityAnonymous IdentityKind = "anonymous"
	IdentityUser      IdentityKind = "user"
)

// Identity is the caller of a pipeline invocation: either a signed-in user
// or an anonymous, device-scoped pseudo-user.
type Identity struct {
	Kind IdentityKind
	ID   string
}

func AnonymousIdentity(deviceID string) Identity {
	return Identity{Kind: IdentityAnonymous, ID: deviceID}
}

func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, ID: userID}
}

func (i Identity) Authenticated() bool {
	return i.Kind == IdentityUser
}
