package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/schema"
	"github.com/agentstation/ledgermap/pkg/types"
)

func newExtractor(t *testing.T, opts ...ingest.ExtractOption) *ingest.Extractor {
	t.Helper()
	adapter, err := schema.NewAdapter(nil)
	require.NoError(t, err)
	x, err := ingest.NewExtractor(adapter, opts...)
	require.NoError(t, err)
	return x
}

func read(t *testing.T, source types.SourceID, kind types.ResourceType, data string) *ingest.File {
	t.Helper()
	in := ingest.Input{Source: source, Store: "S1", Kind: kind, Path: "in.csv"}
	f, err := ingest.Read(strings.NewReader(data), in, ingest.DefaultFormat())
	require.NoError(t, err)
	return f
}

func TestExtractCustomers(t *testing.T) {
	f := read(t, types.VixenID, types.ResourceTypeCustomer,
		"codigo;nome;email;celular;nascimento;obs\n"+
			"00123.0;  João  da Silva ;JOAO@X.COM;(11) 98765-4321;07/03/1985;NaN\n"+
			"124;Ana;naotem@naotem.com;;31/02/1990;ID OSS: 77\n"+
			"125;NaN;x@y.com;;;\n")

	out, err := newExtractor(t).Extract(f)
	require.NoError(t, err)
	require.Len(t, out.Customers, 2)

	c := out.Customers[0]
	assert.Equal(t, "00123", c.SourceRecordID)
	assert.Equal(t, "VIXEN:123", c.LegacyID)
	assert.Equal(t, "João da Silva", c.Name)
	assert.Equal(t, "joao da silva", c.NameKey)
	assert.Equal(t, "joaodasilva", c.NameText)
	assert.Equal(t, "joao@x.com", c.Email.Address)
	assert.True(t, c.Email.Matchable)
	assert.Equal(t, "987654321", c.Phone)
	assert.True(t, c.HasBirth)
	assert.True(t, time.Date(1985, 3, 7, 0, 0, 0, 0, time.UTC).Equal(c.Birthdate))
	assert.Empty(t, c.Notes)

	ana := out.Customers[1]
	assert.False(t, ana.Email.Matchable)
	assert.False(t, ana.HasBirth)
	assert.Equal(t, "ID OSS: 77", ana.Notes)
	require.Len(t, ana.Issues, 1)
	assert.Equal(t, records.CategoryInvalidVal, ana.Issues[0].Category)

	assert.Equal(t, 1, out.Dropped[ingest.ReasonMissingName])
	assert.Len(t, out.Issues, 2)
}

func TestExtractMissingRequiredColumn(t *testing.T) {
	f := read(t, types.OSSID, types.ResourceTypeCustomer, "email;telefone\na@b.com;1\nc@d.com;2\n")

	out, err := newExtractor(t).Extract(f)
	require.NoError(t, err)
	assert.Empty(t, out.Customers)
	assert.Equal(t, 2, out.Dropped[ingest.ReasonMissingColumns])
	for _, issue := range out.Issues {
		assert.Equal(t, records.CategoryMalformed, issue.Category)
		assert.Equal(t, "name", issue.Field)
	}
}

func TestExtractUnknownVariant(t *testing.T) {
	f := read(t, types.CXSID, types.ResourceTypeCustomer, "nome\nAna\n")
	_, err := newExtractor(t).Extract(f)
	assert.True(t, errors.IsConfiguration(err))
}

func TestExtractSales(t *testing.T) {
	f := read(t, types.OSSID, types.ResourceTypeSale,
		"os;valor_total;entrada;forma_pagamento;nome;email;id_cliente;loja\n"+
			"DAV-00100;1.234,56;50;pix;Maria Souza;maria@x.com;55;S1\n"+
			"100;;80,5;cartao  credito;Maria Souza;;55;s1\n"+
			"101;abc;10;;Consumidor Final;;;\n"+
			"102;10;10;;;;;\n"+
			";5;5;;Ana;;;\n"+
			"103;5;5;;Ana;;;S2\n")

	out, err := newExtractor(t).Extract(f)
	require.NoError(t, err)
	require.Len(t, out.Sales, 5)
	assert.Equal(t, 1, out.Dropped[ingest.ReasonOtherStore])

	first := out.Sales[0]
	assert.Equal(t, "100", first.SaleNumber)
	require.NotNil(t, first.Total)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(*first.Total))
	assert.True(t, decimal.NewFromInt(50).Equal(first.DownPayment))
	assert.Equal(t, "PIX", first.PaymentMethod)
	require.NotNil(t, first.Customer)
	assert.Equal(t, "55", first.Customer.SourceRecordID)
	assert.Equal(t, "OSS:55", first.Customer.LegacyID)
	assert.True(t, first.Customer.Email.Matchable)

	second := out.Sales[1]
	assert.Nil(t, second.Total)
	assert.True(t, decimal.RequireFromString("80.5").Equal(second.DownPayment))
	assert.Equal(t, "CARTAO CREDITO", second.PaymentMethod)

	walkIn := out.Sales[2]
	assert.True(t, walkIn.NoCustomer)
	assert.Nil(t, walkIn.Customer)
	assert.Nil(t, walkIn.Total)
	require.Len(t, walkIn.Issues, 1)
	assert.Equal(t, "amount_total", walkIn.Issues[0].Field)

	assert.Nil(t, out.Sales[3].Customer)
	assert.False(t, out.Sales[3].NoCustomer)

	assert.Equal(t, "", out.Sales[4].SaleNumber)
	require.NotNil(t, out.Sales[4].Customer)
	assert.Equal(t, "in.csv#6", out.Sales[4].Customer.SourceRecordID)
}

func TestExtractCustomMarkers(t *testing.T) {
	f := read(t, types.CXSID, types.ResourceTypeSale, "dav;valor;cliente\n1;10;AVULSO\n2;10;Consumidor\n")

	out, err := newExtractor(t, ingest.WithNoCustomerMarkers([]string{"avulso"})).Extract(f)
	require.NoError(t, err)
	require.Len(t, out.Sales, 2)
	assert.True(t, out.Sales[0].NoCustomer)
	assert.False(t, out.Sales[1].NoCustomer)
	require.NotNil(t, out.Sales[1].Customer)
	assert.Equal(t, "consumidor", out.Sales[1].Customer.NameText)
}

func TestNewExtractorValidation(t *testing.T) {
	_, err := ingest.NewExtractor(nil)
	assert.True(t, errors.IsValidationError(err))

	adapter, err := schema.NewAdapter(nil)
	require.NoError(t, err)
	_, err = ingest.NewExtractor(adapter, ingest.WithBlacklist(nil))
	assert.True(t, errors.IsValidationError(err))
}
