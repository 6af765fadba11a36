// Package identifier defines the closed set of identity types used to
// address call participants.
//
// An identifier is a tagged union: every value carries an explicit Kind
// discriminator instead of relying on shape probing. The set is closed on
// purpose; the engine only understands these four raw formats.
package identifier

import "strings"

// Kind discriminates the identifier union.
type Kind int

const (
	// KindCommunicationUser is a service-issued user identity.
	KindCommunicationUser Kind = iota
	// KindPhoneNumber is a PSTN endpoint in E.164 form.
	KindPhoneNumber
	// KindTeamsUser is a federated Teams directory identity.
	KindTeamsUser
	// KindUnknown is an identity the SDK cannot classify. It is carried
	// verbatim so calls with newer server-side identity types still work.
	KindUnknown
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCommunicationUser:
		return "communicationUser"
	case KindPhoneNumber:
		return "phoneNumber"
	case KindTeamsUser:
		return "microsoftTeamsUser"
	default:
		return "unknown"
	}
}

// Identifier is the closed sum of participant identity types.
//
// Implementations are small comparable value types, so identifiers can be
// compared with == and used as map keys.
type Identifier interface {
	Kind() Kind
	// RawID returns the wire representation understood by the engine.
	RawID() string

	isIdentifier()
}

// CommunicationUser identifies a user provisioned by the calling service.
type CommunicationUser struct {
	ID string
}

func (CommunicationUser) Kind() Kind      { return KindCommunicationUser }
func (u CommunicationUser) RawID() string { return u.ID }
func (CommunicationUser) isIdentifier()   {}

// PhoneNumber identifies a PSTN endpoint. The value must be in E.164
// format, including the leading plus sign.
type PhoneNumber struct {
	Number string
}

func (PhoneNumber) Kind() Kind      { return KindPhoneNumber }
func (p PhoneNumber) RawID() string { return "4:" + strings.TrimPrefix(p.Number, "+") }
func (PhoneNumber) isIdentifier()   {}

// TeamsUser identifies a Teams directory user.
type TeamsUser struct {
	UserID      string
	IsAnonymous bool
}

func (TeamsUser) Kind() Kind { return KindTeamsUser }

func (t TeamsUser) RawID() string {
	if t.IsAnonymous {
		return "8:teamsvisitor:" + t.UserID
	}
	return "8:orgid:" + t.UserID
}

func (TeamsUser) isIdentifier() {}

// Unknown carries an unclassified raw identity verbatim.
type Unknown struct {
	ID string
}

func (Unknown) Kind() Kind      { return KindUnknown }
func (u Unknown) RawID() string { return u.ID }
func (Unknown) isIdentifier()   {}

// FromRawID classifies a wire identity back into the tagged union.
// Unrecognized prefixes come back as Unknown rather than an error, so
// event routing never drops a participant over an identity format.
func FromRawID(raw string) Identifier {
	switch {
	case strings.HasPrefix(raw, "8:acs:"):
		return CommunicationUser{ID: raw}
	case strings.HasPrefix(raw, "8:orgid:"):
		return TeamsUser{UserID: strings.TrimPrefix(raw, "8:orgid:")}
	case strings.HasPrefix(raw, "8:teamsvisitor:"):
		return TeamsUser{UserID: strings.TrimPrefix(raw, "8:teamsvisitor:"), IsAnonymous: true}
	case strings.HasPrefix(raw, "4:"):
		return PhoneNumber{Number: "+" + strings.TrimPrefix(raw, "4:")}
	default:
		return Unknown{ID: raw}
	}
}
