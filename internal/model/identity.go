package model

// Identity is the minimal caller record produced by a successful bearer
// token verification. Nothing about it is persisted; every request is
// verified on its own.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Provider      string `json:"provider"` // which verifier accepted the token
}
