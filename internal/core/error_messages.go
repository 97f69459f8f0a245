package core

// error_messages.go maps technical failures to short coded messages that the
// CLI prints when a run aborts. Codes are grouped by where the fault arose:
//
//	IN001-IN099  input file problems
//	DB001-DB099  store connection and constraint problems
//	RUN001-099   run control (cancellation, timeouts)
//	ERR000       anything unrecognised; check the log for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-facing description of a failure.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Input
	{
		pattern: ErrInputNotFound.Error(),
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check the path and try again",
			Code:    "IN001",
		},
	},
	{
		pattern: ErrMissingHeader.Error(),
		msg: UserMessage{
			Message: "The input file is empty or has no header row",
			Action:  "Add a header line naming the product columns",
			Code:    "IN002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The input file could not be read",
			Action:  "Check file permissions",
			Code:    "IN003",
		},
	},

	// Store
	{
		pattern: "unsupported connection string",
		msg: UserMessage{
			Message: "The connection string is not recognised",
			Action:  "Use a postgres://, mysql://, sqlite:// or sqlserver:// connection string",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Check that the database is running and reachable",
			Code:    "DB002",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "The database rejected the credentials",
			Action:  "Check the user and password in the connection string",
			Code:    "DB003",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "The database rejected the credentials",
			Action:  "Check the user and password in the connection string",
			Code:    "DB003",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The database host could not be resolved",
			Action:  "Check the host name in the connection string",
			Code:    "DB004",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The database or table does not exist",
			Action:  "Create the products table before importing",
			Code:    "DB005",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "The database or table does not exist",
			Action:  "Create the products table before importing",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Run the import again",
			Code:    "DB006",
		},
	},

	// Run control
	{
		pattern: ErrCancelled.Error(),
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Committed chunks are kept; re-run to import the rest",
			Code:    "RUN001",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Raise DB_CONNECT_TIMEOUT or check the database",
			Code:    "RUN002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log output for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a UserMessage.
// Sentinel errors are matched with errors.Is before falling back to text patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sentinel := range []error{ErrInputNotFound, ErrMissingHeader, ErrCancelled} {
		if errors.Is(err, sentinel) {
			return lookupPattern(sentinel.Error())
		}
	}

	return lookupPattern(err.Error())
}

func lookupPattern(text string) UserMessage {
	text = strings.ToLower(text)
	for _, ep := range errorPatterns {
		if strings.Contains(text, strings.ToLower(ep.pattern)) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
