package persona

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Persona captures a structured synthetic identity used as an LLM role.
// Profile sections are typed with an open extension bag (see profile.go);
// memory and source exports stay free-form JSON.
type Persona struct {
	ID                string         `json:"id" gorm:"primaryKey;type:uuid"`
	Identity          Identity       `json:"identity" gorm:"type:jsonb"`
	Psychology        Psychology     `json:"psychology" gorm:"type:jsonb"`
	Backstory         Backstory      `json:"backstory" gorm:"type:jsonb"`
	Memory            datatypes.JSON `json:"memory,omitempty"`
	SourceExport      datatypes.JSON `json:"sourceExport,omitempty"`
	PortraitURL       *string        `json:"portraitUrl,omitempty"`
	TotalInteractions int            `json:"totalInteractions"`
	LastInteractionAt *time.Time     `json:"lastInteractionAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// DisplayName renders the persona's human-facing name for transcripts and
// speaker labels.
func (p Persona) DisplayName() string {
	name := strings.TrimSpace(p.Identity.FirstName + " " + p.Identity.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// Seed provides sample personas for the in-memory store so the service is
// usable without a database.
func Seed() []Persona {
	open80 := 80
	open35 := 35
	extra72 := 72
	extra28 := 28
	trust60 := 60
	trust40 := 40
	return []Persona{
		{
			ID: "5f1c9a4e-0d28-4c8e-9f6a-8a2d4f1b7c01",
			Identity: Identity{
				FirstName: "Maya", LastName: "Okafor", Age: 38, Gender: "female",
				City: "Rotterdam", Country: "Netherlands", Occupation: "logistics director",
				EducationLevel: "master's degree", Hobbies: []string{"rowing", "urban sketching"},
			},
			Psychology: Psychology{
				Openness: &open80, Extraversion: &extra72, TrustLevel: &trust60,
				CommunicationStyle: "direct", ConflictStyle: "collaborative",
				PrimaryMotivation: "operational excellence",
				Fears:             []string{"losing credibility in front of peers"},
				HiddenAgenda:      "wants the expansion project assigned to her team",
			},
			Backstory: Backstory{
				LifeNarrative:        "Rose from warehouse floor supervisor to director in twelve years; known for turning around a failing port terminal.",
				CurrentLifeSituation: "Juggling a demanding role with a part-time executive MBA.",
			},
		},
		{
			ID: "9b7d2e60-3a44-41f0-b1cd-55e0c9a3d402",
			Identity: Identity{
				FirstName: "Tomas", LastName: "Lindqvist", Age: 52, Gender: "male",
				City: "Gothenburg", Country: "Sweden", Occupation: "chief financial officer",
				EducationLevel: "bachelor's degree", Hobbies: []string{"sailing", "chess"},
			},
			Psychology: Psychology{
				Openness: &open35, Extraversion: &extra28, TrustLevel: &trust40,
				CommunicationStyle: "measured", ConflictStyle: "avoidant",
				PrimaryMotivation: "protecting the balance sheet",
				Fears:             []string{"approving an investment that fails publicly"},
				HiddenAgenda:      "privately planning to retire within two years",
			},
			Backstory: Backstory{
				LifeNarrative:        "Career accountant who survived two recessions and one hostile takeover attempt; trusts numbers over narratives.",
				CurrentLifeSituation: "Quietly mentoring a successor while deflecting questions about his tenure.",
			},
		},
	}
}
