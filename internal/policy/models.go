package policy

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// Amount is a monetary figure as served by the policy repository, which emits
// numbers and numeric strings interchangeably. Known is false when the field
// was missing or not parseable, so callers can distinguish "no limit data"
// from a genuine zero.
type Amount struct {
	Value float64
	Known bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(data)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount{}
			return nil
		}
		raw = s
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*a = Amount{}
		return nil
	}
	*a = Amount{Value: v, Known: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Known {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// FlexString tolerates upstream fields that flip between string and number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// Benefit is one coverage category: a spending limit ("amount" on the wire)
// and the cumulative amount already claimed.
type Benefit struct {
	Type  string `json:"type"`
	Limit Amount `json:"amount"`
	Used  Amount `json:"usedAmount"`
}

// Member is a covered main member of the policy.
type Member struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
}

// Dependent is a covered dependent of a main member.
type Dependent struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

// Policy is an employee's personal-accident insurance record. The session owns
// it after a successful lookup; it is replaced wholesale on each fetch and
// mutated in place only by a successful commit.
type Policy struct {
	ID                FlexString  `json:"id"`
	EmployeeID        string      `json:"employee_id"`
	CreatedAt         string      `json:"created_at"`
	AdditionalDetails string      `json:"additionalDetails,omitempty"`
	Benefits          []Benefit   `json:"benefits"`
	MainMembers       []Member    `json:"mainMembers"`
	Dependents        []Dependent `json:"dependents"`
}

// MainMemberName resolves the claimant name for audit captions.
func (p *Policy) MainMemberName() string {
	if p != nil && len(p.MainMembers) > 0 && p.MainMembers[0].Name != "" {
		return p.MainMembers[0].Name
	}
	return "Unknown"
}
