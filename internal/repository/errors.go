// Package repository implements persistence for users, refresh tokens,
// tasks and teams on top of database/sql.  This file defines the sentinel
// errors repositories return so higher layers can distinguish failure
// scenarios without string matching.
package repository

import "errors"

// ErrUsernameExists is returned by UserRepo.Create when the username is
// already taken, either detected by the pre-check in the service layer or
// by the unique index acting as a backstop under concurrent registration.
var ErrUsernameExists = errors.New("username already exists")

// ErrUserNotFound is returned when no user row matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTokenNotFound is returned when no refresh token row matches the
// presented hash.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrTokenInactive is returned by Rotate when the old token exists but has
// been revoked or has expired.  Rotation must never mint new credentials
// from an inactive token.
var ErrTokenInactive = errors.New("refresh token expired or revoked")

// ErrNotFound is the generic row-missing sentinel used by the task and
// team repositories.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")
