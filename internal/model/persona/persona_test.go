package persona

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		p    Persona
		want string
	}{
		{"full name", Persona{Identity: Identity{FirstName: "Maya", LastName: "Okafor"}}, "Maya Okafor"},
		{"first only", Persona{Identity: Identity{FirstName: "Maya"}}, "Maya"},
		{"last only", Persona{Identity: Identity{LastName: "Okafor"}}, "Okafor"},
		{"empty", Persona{}, "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.p.DisplayName())
		})
	}
}

func TestIdentityExtensionBagRoundTrip(t *testing.T) {
	raw := []byte(`{"firstName":"Maya","age":38,"favoriteColor":"teal","quirks":["hums while thinking"]}`)

	var id Identity
	require.NoError(t, json.Unmarshal(raw, &id))
	require.Equal(t, "Maya", id.FirstName)
	require.Equal(t, 38, id.Age)
	require.Equal(t, "teal", id.Extra["favoriteColor"])

	out, err := json.Marshal(id)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	require.Equal(t, "Maya", m["firstName"])
	require.Equal(t, "teal", m["favoriteColor"])
	require.Contains(t, m, "quirks")
}

func TestExtensionBagTypedFieldsWin(t *testing.T) {
	id := Identity{
		FirstName: "Maya",
		Extra:     map[string]any{"firstName": "Impostor", "mood": "calm"},
	}

	out, err := json.Marshal(id)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	require.Equal(t, "Maya", m["firstName"])
	require.Equal(t, "calm", m["mood"])
}

func TestPsychologyNilTraitsStayNil(t *testing.T) {
	raw := []byte(`{"communicationStyle":"direct"}`)

	var p Psychology
	require.NoError(t, json.Unmarshal(raw, &p))
	require.Nil(t, p.Openness)
	require.Nil(t, p.TrustLevel)
	require.Equal(t, "direct", p.CommunicationStyle)

	// Unset traits must not be serialized as zeroes.
	out, err := json.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(out), "openness")
}

func TestProfileScanValue(t *testing.T) {
	orig := Backstory{
		LifeNarrative: "Started on the warehouse floor.",
		Extra:         map[string]any{"formativeEvent": "port strike of 2008"},
	}

	val, err := orig.Value()
	require.NoError(t, err)

	var got Backstory
	require.NoError(t, got.Scan(val))
	require.Equal(t, orig.LifeNarrative, got.LifeNarrative)
	require.Equal(t, "port strike of 2008", got.Extra["formativeEvent"])
}

func TestSeedPersonasAreComplete(t *testing.T) {
	seed := Seed()
	require.Len(t, seed, 2)
	for _, p := range seed {
		require.NotEmpty(t, p.ID)
		require.NotEmpty(t, p.Identity.FirstName)
		require.NotEmpty(t, p.Backstory.LifeNarrative)
	}
}
