package registry

import (
	"errors"
	"strings"
)

// Kind is the closed set of submissions the intake engine can collect.
type Kind string

const (
	BirthCertificate  Kind = "Birth Certificate"
	DeathCertificate  Kind = "Death Certificate"
	LandCertificate   Kind = "Land Certificate"
	IncomeCertificate Kind = "Income Certificate"
	Complaint         Kind = "Complaint"
)

var ErrUnknownKind = errors.New("unknown submission kind")

// CertificateKinds lists the certificate flow kinds in menu order.
var CertificateKinds = []Kind{BirthCertificate, DeathCertificate, LandCertificate, IncomeCertificate}

// ComplaintKinds is the single-kind complaint flow.
var ComplaintKinds = []Kind{Complaint}

// aliases are whole-message triggers in addition to the kind name itself.
var aliases = map[Kind][]string{
	Complaint: {"hi", "hello", "complaint", "file a complaint"},
}

func (k Kind) String() string { return string(k) }

func (k Kind) Valid() bool {
	_, ok := fieldTable[k]
	return ok
}

// IsCertificate reports whether k is persisted as an application.
func (k Kind) IsCertificate() bool {
	return k != Complaint && k.Valid()
}

// Lookup resolves an exact (case-insensitive) kind name.
func Lookup(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for k := range fieldTable {
		if strings.ToLower(string(k)) == normalized {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// Detect finds the first kind of kinds named in message. A kind matches when its
// name appears anywhere in the message or the whole message equals an alias.
func Detect(message string, kinds []Kind) (Kind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return "", false
	}
	for _, k := range kinds {
		if strings.Contains(normalized, strings.ToLower(string(k))) {
			return k, true
		}
	}
	for _, k := range kinds {
		for _, alias := range aliases[k] {
			if normalized == alias {
				return k, true
			}
		}
	}
	return "", false
}
