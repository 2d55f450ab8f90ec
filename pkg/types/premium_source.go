package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type PremiumSourceKind string

const (
	PremiumSourceKindPartner  PremiumSourceKind = "partner"
	PremiumSourceKindReferral PremiumSourceKind = "referral"
	// PremiumSourceKindOther holds values written by other services, such as
	// "unknown" or "in_app_purchase". ID carries the raw stored string.
	PremiumSourceKindOther PremiumSourceKind = "other"
)

// PremiumSource identifies who granted premium to a user. It is stored as
// "{kind}_{id}", e.g. "partner_acme" or "referral_inf42".
type PremiumSource struct {
	Kind PremiumSourceKind
	ID   string
}

func PartnerSource(partnerID string) PremiumSource {
	return PremiumSource{Kind: PremiumSourceKindPartner, ID: partnerID}
}

func ReferralSource(influencerID string) PremiumSource {
	return PremiumSource{Kind: PremiumSourceKindReferral, ID: influencerID}
}

// OpaqueSource keeps a stored value this service does not understand so it
// is written back unchanged.
func OpaqueSource(raw string) PremiumSource {
	return PremiumSource{Kind: PremiumSourceKindOther, ID: raw}
}

func (s PremiumSource) String() string {
	switch s.Kind {
	case "":
		return ""
	case PremiumSourceKindOther:
		return s.ID
	}
	return string(s.Kind) + "_" + s.ID
}

func (s PremiumSource) IsZero() bool { return s.Kind == "" && s.ID == "" }

func (s PremiumSource) IsOpaque() bool { return s.Kind == PremiumSourceKindOther }

// ParsePremiumSource parses the storage form strictly. Only the first
// underscore separates kind from id, so ids may contain underscores.
func ParsePremiumSource(v string) (PremiumSource, error) {
	kind, id, ok := strings.Cut(v, "_")
	if !ok || id == "" {
		return PremiumSource{}, fmt.Errorf("invalid premium source: %q", v)
	}
	switch PremiumSourceKind(kind) {
	case PremiumSourceKindPartner, PremiumSourceKindReferral:
		return PremiumSource{Kind: PremiumSourceKind(kind), ID: id}, nil
	default:
		return PremiumSource{}, fmt.Errorf("unknown premium source kind: %q", kind)
	}
}

func (s PremiumSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText never fails: values that do not parse become an opaque source.
func (s *PremiumSource) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = PremiumSource{}
		return nil
	}
	v, err := ParsePremiumSource(string(b))
	if err != nil {
		v = OpaqueSource(string(b))
	}
	*s = v
	return nil
}

// Value implements driver.Valuer.
func (s PremiumSource) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, nil
	}
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *PremiumSource) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = PremiumSource{}
		return nil
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return s.UnmarshalText([]byte(fmt.Sprint(v)))
	}
}
