package notification

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type AudienceKind string

const (
	AudienceBroadcast AudienceKind = "broadcast"
	AudienceUsers     AudienceKind = "user"
	AudienceRoles     AudienceKind = "role"
)

// Audience decides which recipients may see a notification and which
// live channels it is pushed to. Fields are unexported so a
// kind/member mismatch cannot be constructed; the zero value is
// invalid and rejected on create.
type Audience struct {
	kind    AudienceKind
	members []string
}

func Broadcast() Audience { return Audience{kind: AudienceBroadcast} }

func Users(usernames ...string) Audience {
	return Audience{kind: AudienceUsers, members: normalizeMembers(usernames)}
}

func Roles(roles ...string) Audience {
	return Audience{kind: AudienceRoles, members: normalizeMembers(roles)}
}

// ParseAudience rebuilds an Audience from its stored or wire parts.
func ParseAudience(kind AudienceKind, members []string) (Audience, error) {
	switch kind {
	case AudienceBroadcast:
		if len(members) > 0 {
			return Audience{}, fmt.Errorf("audience: broadcast carries no members")
		}
		return Broadcast(), nil
	case AudienceUsers:
		return Users(members...), nil
	case AudienceRoles:
		return Roles(members...), nil
	default:
		return Audience{}, fmt.Errorf("audience: unknown kind %q", kind)
	}
}

func (a Audience) Kind() AudienceKind { return a.kind }

func (a Audience) Members() []string {
	return slices.Clone(a.members)
}

func (a Audience) IsZero() bool { return a.kind == "" }

// Empty reports a targeted audience whose member list normalized away
// to nothing. Such an audience is unsendable: it resolves to no
// channels and is visible to nobody.
func (a Audience) Empty() bool {
	return a.kind != AudienceBroadcast && len(a.members) == 0
}

// Channels resolves the audience to live channel names: "broadcast",
// "user:<name>" or "role:<role>".
func (a Audience) Channels() []string {
	switch a.kind {
	case AudienceBroadcast:
		return []string{"broadcast"}
	case AudienceUsers:
		return prefixed("user:", a.members)
	case AudienceRoles:
		return prefixed("role:", a.members)
	}
	return nil
}

// VisibleTo reports whether a recipient holding the given role may see
// notifications addressed to this audience.
func (a Audience) VisibleTo(recipient, role string) bool {
	switch a.kind {
	case AudienceBroadcast:
		return true
	case AudienceUsers:
		return slices.Contains(a.members, recipient)
	case AudienceRoles:
		return role != "" && slices.Contains(a.members, role)
	}
	return false
}

type audienceJSON struct {
	Kind    AudienceKind `json:"kind"`
	Members []string     `json:"members,omitempty"`
}

func (a Audience) MarshalJSON() ([]byte, error) {
	return json.Marshal(audienceJSON{Kind: a.kind, Members: a.members})
}

func (a *Audience) UnmarshalJSON(data []byte) error {
	var raw audienceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAudience(raw.Kind, raw.Members)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func normalizeMembers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

func prefixed(prefix string, members []string) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = prefix + m
	}
	return out
}
