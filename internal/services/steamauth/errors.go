package steamauth

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrBadRSA means getrsakey answered with success=false or an unusable key.
	ErrBadRSA = errors.New("steam rejected rsa key request")
	// ErrUnexpectedResponse means a page or payload did not have the expected
	// shape. It signals that the platform changed, not that the user must act.
	ErrUnexpectedResponse = errors.New("unexpected response from steam")
	// ErrTransport covers network errors, timeouts and non-2xx statuses.
	ErrTransport = errors.New("steam request failed")
	// ErrNotLoggedIn is returned by session actions when the cookie jar does
	// not carry an authenticated identity, even after a fresh bootstrap.
	ErrNotLoggedIn = errors.New("steam session is not logged in")
)

const (
	codeBadRSA             = "steam_bad_rsa"
	codeUnexpectedResponse = "steam_unexpected_response"
	codeTransport          = "steam_transport"
	codeNotLoggedIn        = "steam_not_logged_in"
	codeSteamGuard         = "steam_guard"
	codeStorage            = "steam_storage"
)

func unexpectedResponse(step, format string, args ...any) error {
	return oops.
		In("steamauth").
		Code(codeUnexpectedResponse).
		With("step", step).
		Wrapf(ErrUnexpectedResponse, format, args...)
}

func transportFailure(endpoint string, err error) error {
	return oops.
		In("steamauth").
		Code(codeTransport).
		With("endpoint", endpoint).
		Wrapf(errors.Join(ErrTransport, err), "request %s", endpoint)
}

func badRSA(username, reason string) error {
	return oops.
		In("steamauth").
		Code(codeBadRSA).
		With("username", username).
		Wrapf(ErrBadRSA, "%s", reason)
}

func notLoggedIn(action string) error {
	return oops.
		In("steamauth").
		Code(codeNotLoggedIn).
		With("action", action).
		Wrap(ErrNotLoggedIn)
}
