package persona

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Profile sections arrive as open JSON from persona generators and exports.
// Known fields are typed so prompt renderers can use them directly; any
// additional keys are preserved in an Extra bag and round-tripped on marshal
// instead of being dropped or causing parse errors.

// Identity describes who the persona is.
type Identity struct {
	FirstName      string   `json:"firstName,omitempty"`
	LastName       string   `json:"lastName,omitempty"`
	Nickname       string   `json:"nickname,omitempty"`
	Age            int      `json:"age,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	Pronouns       string   `json:"pronouns,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	Country        string   `json:"country,omitempty"`
	Occupation     string   `json:"occupation,omitempty"`
	Employer       string   `json:"employer,omitempty"`
	EducationLevel string   `json:"educationLevel,omitempty"`
	Hobbies        []string `json:"hobbies,omitempty"`

	Extra map[string]any `json:"-"`
}

// Psychology describes how the persona thinks and behaves. Trait scores are
// 0-100; nil means unspecified and renderers substitute a neutral 50.
type Psychology struct {
	Openness          *int `json:"openness,omitempty"`
	Conscientiousness *int `json:"conscientiousness,omitempty"`
	Extraversion      *int `json:"extraversion,omitempty"`
	Agreeableness     *int `json:"agreeableness,omitempty"`
	Neuroticism       *int `json:"neuroticism,omitempty"`
	TrustLevel        *int `json:"trustLevel,omitempty"`
	ProactivityLevel  *int `json:"proactivityLevel,omitempty"`

	CommunicationStyle  string   `json:"communicationStyle,omitempty"`
	DecisionMakingStyle string   `json:"decisionMakingStyle,omitempty"`
	ConflictStyle       string   `json:"conflictStyle,omitempty"`
	PrimaryMotivation   string   `json:"primaryMotivation,omitempty"`
	Fears               []string `json:"fears,omitempty"`
	HiddenAgenda        string   `json:"hiddenAgenda,omitempty"`
	InternalBiases      []string `json:"internalBiases,omitempty"`
	TopicsTheyVolunteer []string `json:"topicsTheyVolunteer,omitempty"`

	Extra map[string]any `json:"-"`
}

// Backstory describes where the persona comes from.
type Backstory struct {
	LifeNarrative        string   `json:"lifeNarrative,omitempty"`
	CurrentLifeSituation string   `json:"currentLifeSituation,omitempty"`
	RecentExperiences    []string `json:"recentExperiences,omitempty"`

	Extra map[string]any `json:"-"`
}

var identityKeys = []string{
	"firstName", "lastName", "nickname", "age", "gender", "pronouns",
	"city", "state", "country", "occupation", "employer", "educationLevel",
	"hobbies",
}

var psychologyKeys = []string{
	"openness", "conscientiousness", "extraversion", "agreeableness",
	"neuroticism", "trustLevel", "proactivityLevel", "communicationStyle",
	"decisionMakingStyle", "conflictStyle", "primaryMotivation", "fears",
	"hiddenAgenda", "internalBiases", "topicsTheyVolunteer",
}

var backstoryKeys = []string{
	"lifeNarrative", "currentLifeSituation", "recentExperiences",
}

type identityAlias Identity
type psychologyAlias Psychology
type backstoryAlias Backstory

func (i *Identity) UnmarshalJSON(data []byte) error {
	var a identityAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extraFields(data, identityKeys)
	if err != nil {
		return err
	}
	*i = Identity(a)
	i.Extra = extra
	return nil
}

func (i Identity) MarshalJSON() ([]byte, error) {
	return mergeExtra(identityAlias(i), i.Extra)
}

func (p *Psychology) UnmarshalJSON(data []byte) error {
	var a psychologyAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extraFields(data, psychologyKeys)
	if err != nil {
		return err
	}
	*p = Psychology(a)
	p.Extra = extra
	return nil
}

func (p Psychology) MarshalJSON() ([]byte, error) {
	return mergeExtra(psychologyAlias(p), p.Extra)
}

func (b *Backstory) UnmarshalJSON(data []byte) error {
	var a backstoryAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extraFields(data, backstoryKeys)
	if err != nil {
		return err
	}
	*b = Backstory(a)
	b.Extra = extra
	return nil
}

func (b Backstory) MarshalJSON() ([]byte, error) {
	return mergeExtra(backstoryAlias(b), b.Extra)
}

// extraFields returns the keys of data not covered by known typed fields.
func extraFields(data []byte, known []string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(m, k)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// mergeExtra marshals the typed fields and layers the extension bag back in.
// Typed fields win on key collision.
func mergeExtra(v any, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, exists := m[k]; !exists {
			m[k] = val
		}
	}
	return json.Marshal(m)
}

// Value / Scan store the profile sections as JSON columns.

func (i Identity) Value() (driver.Value, error)   { return json.Marshal(i) }
func (p Psychology) Value() (driver.Value, error) { return json.Marshal(p) }
func (b Backstory) Value() (driver.Value, error)  { return json.Marshal(b) }

func (i *Identity) Scan(src any) error   { return scanJSON(src, i) }
func (p *Psychology) Scan(src any) error { return scanJSON(src, p) }
func (b *Backstory) Scan(src any) error  { return scanJSON(src, b) }

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T for persona profile", src)
	}
}
