// Copyright 2024 The ftsdb Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ftserr defines the error taxonomy shared by every backend and by
// the database handle state machine: DatabaseClosed, DatabaseLock,
// DatabaseCorrupt, NetworkError, InvalidOperation, InvalidArgument and
// FeatureUnavailable. Errors are represented as grpc/status errors, the same
// way the teacher's API layer tags every user-facing error with a
// codes.Code. A Kind crosses the remote protocol as the "Kind: message"
// prefix written by WireMessage and read back by ParseWireMessage.
package ftserr

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is one of the abstract error kinds from the error taxonomy.
type Kind int

const (
	// Unknown is never returned by this package; it's the zero value.
	Unknown Kind = iota
	DatabaseClosed
	DatabaseLock
	DatabaseCorrupt
	NetworkError
	InvalidOperation
	InvalidArgument
	FeatureUnavailable
)

func (k Kind) String() string {
	switch k {
	case DatabaseClosed:
		return "DatabaseClosed"
	case DatabaseLock:
		return "DatabaseLock"
	case DatabaseCorrupt:
		return "DatabaseCorrupt"
	case NetworkError:
		return "NetworkError"
	case InvalidOperation:
		return "InvalidOperation"
	case InvalidArgument:
		return "InvalidArgument"
	case FeatureUnavailable:
		return "FeatureUnavailable"
	default:
		return "Unknown"
	}
}

// code maps a Kind onto the grpc status code of the errors New builds.
func (k Kind) code() codes.Code {
	switch k {
	case DatabaseClosed:
		return codes.FailedPrecondition
	case DatabaseLock:
		return codes.AlreadyExists
	case DatabaseCorrupt:
		return codes.DataLoss
	case NetworkError:
		return codes.Unavailable
	case InvalidOperation:
		return codes.FailedPrecondition
	case InvalidArgument:
		return codes.InvalidArgument
	case FeatureUnavailable:
		return codes.Unimplemented
	default:
		return codes.Unknown
	}
}

// New builds an error of the given kind carrying msg.
func New(kind Kind, msg string) error {
	return status.Error(kind.code(), kind.String()+": "+msg)
}

// Newf is New with fmt-style formatting of msg.
func Newf(kind Kind, format string, args ...interface{}) error {
	return status.Errorf(kind.code(), kind.String()+": "+format, args...)
}

// KindOf recovers the Kind originally passed to New/Newf, or Unknown if err
// was not produced by this package (or is nil). DatabaseClosed and
// InvalidOperation share a grpc code, so both are reported as
// DatabaseClosed; Is tells them apart.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	st, ok := status.FromError(err)
	if !ok {
		return Unknown
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		// Ambiguous with InvalidOperation; callers that need to distinguish
		// should use Is(err, DatabaseClosed) / Is(err, InvalidOperation).
		return DatabaseClosed
	case codes.AlreadyExists:
		return DatabaseLock
	case codes.DataLoss:
		return DatabaseCorrupt
	case codes.Unavailable:
		return NetworkError
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.Unimplemented:
		return FeatureUnavailable
	default:
		return Unknown
	}
}

// Is reports whether err was constructed with the given Kind. Unlike
// KindOf, it disambiguates DatabaseClosed vs InvalidOperation (which share
// a grpc code) by checking the rendered message prefix.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	if st.Code() != kind.code() {
		return false
	}
	if kind == DatabaseClosed || kind == InvalidOperation {
		return len(st.Message()) >= len(kind.String()) && st.Message()[:len(kind.String())] == kind.String()
	}
	return true
}

// Sentinel errors for equality checks that don't need a message.
var (
	ErrDatabaseClosed = New(DatabaseClosed, "handle is closed")
	ErrNetworkError   = New(NetworkError, "connection is broken")
)

// As is a thin re-export of errors.As for callers that want to unwrap a
// status error without importing grpc/status directly.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// WireMessage renders err as "Kind: message" for transmission across the
// remote protocol (C6), so the receiving end can reconstruct the same Kind
// with ParseWireMessage without leaking the grpc status wrapper's own
// "rpc error: code = ..." framing onto the wire.
func WireMessage(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

// ParseWireMessage is the receiving half of WireMessage: it reconstructs a
// Kind-tagged error from a "Kind: message" string, or falls back to a
// plain error if msg doesn't carry a recognized Kind prefix.
func ParseWireMessage(msg string) error {
	for _, kind := range []Kind{
		DatabaseClosed, DatabaseLock, DatabaseCorrupt, NetworkError,
		InvalidOperation, InvalidArgument, FeatureUnavailable,
	} {
		prefix := kind.String() + ": "
		if len(msg) >= len(prefix) && msg[:len(prefix)] == prefix {
			return New(kind, msg[len(prefix):])
		}
	}
	return errors.New(msg)
}
