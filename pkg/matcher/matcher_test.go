package matcher_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/matcher"
	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

var birth = time.Date(1985, time.March, 7, 0, 0, 0, 0, time.UTC)

func entity(uuid, name string, mutate ...func(*records.Entity)) *records.Entity {
	e := &records.Entity{UUID: uuid, Name: name, Source: types.VixenID, Store: "S1"}
	for _, m := range mutate {
		m(e)
	}
	return e
}

func customer(name string, mutate ...func(*records.Customer)) *records.Customer {
	c := &records.Customer{
		Source:   types.OSSID,
		Store:    "S1",
		RowID:    "in.csv#2",
		Name:     name,
		NameKey:  normalize.NameKey(name),
		NameText: normalize.Text(name),
		Tokens:   normalize.Tokens(name),
	}
	c.SourceRecordID = c.RowID
	for _, m := range mutate {
		m(c)
	}
	return c
}

func withEmail(addr string) func(*records.Customer) {
	return func(c *records.Customer) { c.Email = normalize.Email(addr, nil) }
}

func withBirth(c *records.Customer) {
	c.Birthdate, c.HasBirth = birth, true
}

func TestScenarioEmailMatch(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-1", "Joao Silva", func(e *records.Entity) { e.Email = "joao@x.com" }),
		entity("u-2", "Maria Souza"),
	)

	out, err := matcher.Default().Match(customer("J. Silva", withEmail("JOAO@x.com")), pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, "u-1", out.Candidate.Entity.UUID)
	assert.Equal(t, types.MethodEmail, out.Candidate.Method)
	assert.Equal(t, types.TierHigh, out.Candidate.Tier)
	assert.Equal(t, []matcher.Attempt{
		{Method: types.MethodEmbeddedID, Candidates: 0, Result: matcher.AttemptNone},
		{Method: types.MethodEmail, Candidates: 1, Result: matcher.AttemptAccepted},
	}, out.Attempts)
}

func TestEmailBeatsNameBirthdate(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-name", "Joao Pedro Silva", func(e *records.Entity) { e.Birthdate = birth }),
		entity("u-mail", "Outro Nome", func(e *records.Entity) { e.Email = "jp@x.com" }),
	)

	out, err := matcher.Default().Match(customer("Joao Pedro", withEmail("jp@x.com"), withBirth), pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, "u-mail", out.Candidate.Entity.UUID)
	assert.Equal(t, types.MethodEmail, out.Candidate.Method)
}

func TestScenarioEmbeddedIDAmbiguous(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-1", "Ana", func(e *records.Entity) { e.AddLegacyID("VIXEN:10") }),
		entity("u-2", "Bia", func(e *records.Entity) { e.AddLegacyID("VIXEN:20") }),
	)
	rec := customer("Carla", func(c *records.Customer) {
		c.Notes = "cliente antigo ID VIXEN: 0010, ver também id vixen:20"
		c.Email = normalize.Email("carla@x.com", nil)
	})

	out, err := matcher.Default().Match(rec, pool)
	require.Error(t, err)
	assert.True(t, errors.IsAmbiguous(err))
	assert.Nil(t, out.Candidate)

	var amb *errors.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "EMBEDDED_ID", amb.Strategy)
	assert.Equal(t, []string{"u-1", "u-2"}, amb.Candidates)
	assert.Equal(t, "in.csv#2", amb.RecordID)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, matcher.AttemptAmbiguous, out.Attempts[0].Result)
}

func TestEmailAmbiguous(t *testing.T) {
	// Spouses sharing one address: two HIGH candidates stop matching.
	pool := matcher.NewPool(
		entity("u-1", "Joao Silva", func(e *records.Entity) { e.Email = "familia@x.com" }),
		entity("u-2", "Maria Silva", func(e *records.Entity) { e.Email = "familia@x.com" }),
	)

	out, err := matcher.Default().Match(customer("Joao Silva", withEmail("Familia@X.com")), pool)
	require.Error(t, err)
	assert.True(t, errors.IsAmbiguous(err))
	assert.Nil(t, out.Candidate)

	var amb *errors.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, string(types.MethodEmail), amb.Strategy)
	assert.Equal(t, []string{"u-1", "u-2"}, amb.Candidates)
	assert.Equal(t, []matcher.Attempt{
		{Method: types.MethodEmbeddedID, Candidates: 0, Result: matcher.AttemptNone},
		{Method: types.MethodEmail, Candidates: 2, Result: matcher.AttemptAmbiguous},
	}, out.Attempts)
}

func TestPlaceholderEmailNeverMatches(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		blacklist *normalize.Blacklist
	}{
		{name: "default address", address: "naotem@naotem.com"},
		{name: "default local part", address: "sememail@loja.com"},
		{name: "configured domain", address: "contato@loja.com.br",
			blacklist: normalize.NewBlacklist(nil, nil, []string{"loja.com.br"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := matcher.NewPool(entity("u-1", "Ana Lima", func(e *records.Entity) { e.Email = tt.address }))
			rec := customer("Bruno Rocha", func(c *records.Customer) { c.Email = normalize.Email(tt.address, tt.blacklist) })
			require.False(t, rec.Email.Matchable)

			assert.Empty(t, matcher.NewEmailStrategy().Match(rec, pool))

			out, err := matcher.Default().Match(rec, pool)
			require.NoError(t, err)
			assert.Nil(t, out.Candidate)
			for _, a := range out.Attempts {
				if a.Method == types.MethodEmail {
					assert.Equal(t, matcher.AttemptNone, a.Result)
					assert.Zero(t, a.Candidates)
				}
			}
		})
	}
}

func TestEmbeddedIDUsesOwnLegacyID(t *testing.T) {
	pool := matcher.NewPool(entity("u-1", "Ana", func(e *records.Entity) { e.AddLegacyID("VIXEN:10") }))
	rec := customer("Ana Paula", func(c *records.Customer) { c.LegacyID = "VIXEN:10" })

	out, err := matcher.Default().Match(rec, pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, types.MethodEmbeddedID, out.Candidate.Method)
}

func TestEmbeddedIDs(t *testing.T) {
	assert.Equal(t, []string{"VIXEN:123", "OSS:7"}, matcher.EmbeddedIDs("ID VIXEN: 00123; id oss 7"))
	assert.Empty(t, matcher.EmbeddedIDs("IDADE 45, PAID: 10"))
}

func TestMediumAmbiguityFallsThrough(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-1", "Carlos Alberto", func(e *records.Entity) { e.Phone = "987654321" }),
		entity("u-2", "Carla Dias", func(e *records.Entity) { e.Phone = "987654321" }),
	)
	rec := customer("Carlos Alberto", func(c *records.Customer) { c.Phone = "987654321" })

	out, err := matcher.Default().Match(rec, pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, "u-1", out.Candidate.Entity.UUID)
	assert.Equal(t, types.MethodTokenContainment, out.Candidate.Method)
	assert.Equal(t, types.TierLow, out.Candidate.Tier)

	results := make(map[types.MatchMethod]matcher.AttemptResult)
	for _, a := range out.Attempts {
		results[a.Method] = a.Result
	}
	assert.Equal(t, matcher.AttemptSkipped, results[types.MethodPhone])
}

func TestNameAndLastNameBirthdate(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-1", "Maria Clara Souza Lima", func(e *records.Entity) { e.Birthdate = birth }),
		entity("u-2", "Maria Clara Souza", func(e *records.Entity) { e.Birthdate = birth.AddDate(1, 0, 0) }),
	)

	out, err := matcher.Default().Match(customer("Maria Clara", withBirth), pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, "u-1", out.Candidate.Entity.UUID)
	assert.Equal(t, types.MethodNameBirthdate, out.Candidate.Method)

	out, err = matcher.Default().Match(customer("M. Lima", withBirth), pool)
	require.NoError(t, err)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, types.MethodLastNameBirthdate, out.Candidate.Method)
	assert.Equal(t, types.TierMedium, out.Candidate.Tier)
}

func TestTokenContainmentLowAmbiguityIsNoMatch(t *testing.T) {
	pool := matcher.NewPool(
		entity("u-1", "Fernanda Souza"),
		entity("u-2", "Roberto Souza"),
	)
	out, err := matcher.Default().Match(customer("Souza"), pool)
	require.NoError(t, err)
	assert.Nil(t, out.Candidate)
	assert.Equal(t, matcher.AttemptSkipped, out.Attempts[len(out.Attempts)-1].Result)
}

func TestTokenContainmentCapAndMinLength(t *testing.T) {
	var entities []*records.Entity
	for i := 0; i < 25; i++ {
		entities = append(entities, entity(fmt.Sprintf("u-%02d", i), fmt.Sprintf("Silva %d", i)))
	}
	pool := matcher.NewPool(entities...)

	s := matcher.NewTokenContainmentStrategy()
	assert.Empty(t, s.Match(customer("Silva"), pool))

	short := matcher.NewPool(entity("u-1", "Ana Lee"))
	assert.Empty(t, s.Match(customer("Lee"), short))
}

func TestSelectKeepsPriorityOrder(t *testing.T) {
	strategies, err := matcher.Select([]types.MatchMethod{types.MethodPhone, types.MethodEmbeddedID})
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, types.MethodEmbeddedID, strategies[0].Method())
	assert.Equal(t, types.MethodPhone, strategies[1].Method())

	all, err := matcher.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	_, err = matcher.Select([]types.MatchMethod{"SOUNDEX"})
	assert.True(t, errors.IsValidationError(err))

	_, err = matcher.Select([]types.MatchMethod{types.MethodNew})
	assert.Error(t, err)
}

func TestPoolReindexAndClone(t *testing.T) {
	e := entity("u-1", "Ana", func(e *records.Entity) { e.Email = "old@x.com" })
	pool := matcher.NewPool(e)

	e.Email = "new@x.com"
	pool.Add(e)
	assert.Empty(t, pool.ByEmail("old@x.com"))
	assert.Len(t, pool.ByEmail("new@x.com"), 1)
	assert.Equal(t, 1, pool.Len())

	clone := pool.Clone()
	c, ok := clone.Get("u-1")
	require.True(t, ok)
	c.Name = "changed"
	assert.Equal(t, "Ana", e.Name)
}
