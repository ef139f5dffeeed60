package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "walletgate/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler keeps a wallet ID from being
// passed where a profile ID is expected.
type (
	AccountID         uuid.UUID
	ProfileID         uuid.UUID
	WalletID          uuid.UUID
	ExternalAccountID uuid.UUID
	EntryID           uuid.UUID
)

func (id AccountID) String() string         { return uuid.UUID(id).String() }
func (id ProfileID) String() string         { return uuid.UUID(id).String() }
func (id WalletID) String() string          { return uuid.UUID(id).String() }
func (id ExternalAccountID) String() string { return uuid.UUID(id).String() }
func (id EntryID) String() string           { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id WalletID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ExternalAccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }

// maxIDLength bounds input before handing it to the UUID parser.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return parsed, nil
}

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID("account ID", s)
	return AccountID(u), err
}

func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID("profile ID", s)
	return ProfileID(u), err
}

func ParseWalletID(s string) (WalletID, error) {
	u, err := parseUUID("wallet ID", s)
	return WalletID(u), err
}

func ParseExternalAccountID(s string) (ExternalAccountID, error) {
	u, err := parseUUID("external account ID", s)
	return ExternalAccountID(u), err
}

func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID("entry ID", s)
	return EntryID(u), err
}
