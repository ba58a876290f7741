package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/config"
	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/schema"
	"github.com/agentstation/ledgermap/pkg/types"
)

const sample = `
namespace: 6ba7b811-9dad-11d1-80b4-00c04fd430c8
workers: 2
idmap: state/ids.db
sources:
  VIXEN: {delimiter: ";", encoding: windows-1252}
  CXS: {delimiter: tab}
schema:
  - source: OSS
    kind: sale
    aliases:
      amount_down: ["valor adiantado"]
partitions:
  - {source: VIXEN, store: S1, start: 1, end: 99999}
  - {source: OSS, store: S1, start: 100000, end: 199999}
inputs:
  - {source: VIXEN, store: S1, kind: customer, path: vixen.csv}
  - {source: OSS, store: S1, kind: sale, path: oss.csv}
  - {source: OSS, store: S2, kind: sale, path: oss2.csv}
matching:
  strategies: [EMAIL, EMBEDDED_ID]
normalize:
  sale_number_prefixes: [DAV]
  email_blacklist:
    addresses: [fake@loja.com]
authorities:
  - {path: phone, source: VIXEN, priority: 99}
`

func TestParse(t *testing.T) {
	p, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 2, p.Workers)
	assert.Equal(t, "state/ids.db", p.IDMap)
	assert.Equal(t, ";", p.Format(types.VixenID).Delimiter)
	assert.Equal(t, "windows-1252", p.Format(types.VixenID).Encoding)
	assert.Equal(t, "tab", p.Format(types.CXSID).Delimiter)
	assert.Equal(t, constants.DefaultEncoding, p.Format(types.CXSID).Encoding)
	assert.Equal(t, constants.DefaultDelimiter, p.Format(types.OSSID).Delimiter)
	assert.Equal(t, []types.StoreID{"S1", "S2"}, p.Stores())

	ns, err := p.NamespaceUUID()
	require.NoError(t, err)
	assert.Equal(t, "6ba7b811-9dad-11d1-80b4-00c04fd430c8", ns.String())

	table, err := p.Table()
	require.NoError(t, err)
	aliases, ok := table.Aliases(types.OSSID, types.ResourceTypeSale)
	require.True(t, ok)
	assert.Equal(t, "valor adiantado", aliases[schema.FieldAmountDown][0])

	m, err := p.Matcher()
	require.NoError(t, err)
	require.Len(t, m.Strategies(), 2)
	assert.Equal(t, types.MethodEmbeddedID, m.Strategies()[0].Method())

	assert.False(t, normalize.Email("fake@loja.com", p.Blacklist()).Matchable)
	assert.False(t, normalize.Email("naotem@naotem.com", p.Blacklist()).Matchable)
	assert.True(t, normalize.Email("ana@loja.com", p.Blacklist()).Matchable)

	assert.Equal(t, 99, p.Authority().Priority("phone", types.ResourceTypeCustomer, types.VixenID))
	assert.Len(t, p.ExtractOptions(), 2)
}

func TestParseDefaults(t *testing.T) {
	p, err := config.Parse([]byte("partitions: []\n"))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultWorkers, p.Workers)
	assert.Equal(t, constants.DefaultIDMapPath, p.IDMap)
	ns, err := p.NamespaceUUID()
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultNamespace, ns)
	m, err := p.Matcher()
	require.NoError(t, err)
	assert.Len(t, m.Strategies(), len(types.StrategyMethods()))
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := config.Parse([]byte("partitons: []\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "overlapping partitions",
			doc: `partitions:
  - {source: VIXEN, store: S1, start: 1, end: 100}
  - {source: OSS, store: S1, start: 50, end: 200}
`,
			want: "overlaps",
		},
		{
			name: "unknown source format",
			doc:  "sources:\n  FOO: {delimiter: \";\"}\n",
			want: "unknown source",
		},
		{
			name: "bad encoding",
			doc:  "sources:\n  OSS: {encoding: ebcdic}\n",
			want: "encoding",
		},
		{
			name: "shared alias",
			doc: `schema:
  - source: OSS
    kind: sale
    aliases:
      amount_total: ["entrada"]
`,
			want: "maps to both",
		},
		{
			name: "unknown strategy",
			doc:  "matching:\n  strategies: [SOUNDEX]\n",
			want: "SOUNDEX",
		},
		{
			name: "bad input",
			doc:  "inputs:\n  - {source: OSS, store: S1, kind: invoice, path: x.csv}\n",
			want: "inputs[0]",
		},
		{
			name: "bad namespace",
			doc:  "namespace: not-a-uuid\n",
			want: "namespace",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	p := config.Default()
	p.Workers = 0
	p.Namespace = "nope"
	p.Matching.Strategies = []types.MatchMethod{"SOUNDEX"}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "namespace")
	assert.Contains(t, err.Error(), "SOUNDEX")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgermap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), constants.FilePermissions))
	p, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Partitions, 2)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "vixen.csv"), p.Inputs[0].Path)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsIO(err))
}

func TestLoadExample(t *testing.T) {
	p, err := config.Load(filepath.Join("..", "..", "examples", "pipeline.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []types.StoreID{"loja01", "loja02"}, p.Stores())
	set, err := p.PartitionSet()
	require.NoError(t, err)
	assert.Len(t, set.List(), 5)
	assert.Equal(t, "tab", p.Format(types.CXSID).Delimiter)
}
