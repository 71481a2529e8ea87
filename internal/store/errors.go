package store

import clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"

// Sentinel errors. All carry codes from internal/errors so callers can use
// errors.Is against either these values or the generic code sentinels.
var (
	ErrNotFound      = clienterrors.NotFound("resource not found")
	ErrAlreadyExists = clienterrors.AlreadyExists("resource already exists")

	ErrProfileNotFound = clienterrors.NotFound("profile not found")
	ErrAccountNotFound = clienterrors.AccountNotFound("account does not exist")
	ErrEmailTaken      = clienterrors.AlreadyExists("an account with this email already exists")
	ErrNoSession       = clienterrors.NotFound("no active session")
)
