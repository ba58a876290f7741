package schema

import "github.com/agentstation/ledgermap/pkg/types"

// Aliases lists accepted raw column names per internal field.
type Aliases map[Field][]string

// Shared alias groups. Names are compared after normalize.Text, so accents,
// case, spaces and punctuation do not matter ("Nº Venda" == "n_venda").
var (
	nameAliases      = []string{"nome", "nome_cliente", "nome do cliente", "cliente", "razao social", "nome completo"}
	emailAliases     = []string{"email", "e-mail", "email_cliente", "correio eletronico"}
	phoneAliases     = []string{"telefone", "celular", "fone", "tel", "telefone_celular", "whatsapp"}
	birthAliases     = []string{"data_nascimento", "dt_nascimento", "nascimento", "data de nascimento", "aniversario"}
	notesAliases     = []string{"observacao", "observacoes", "obs", "historico", "descricao"}
	totalAliases     = []string{"valor_total", "total", "vl_total", "valor da venda", "valor_venda"}
	downAliases      = []string{"valor_entrada", "entrada", "sinal", "valor_pago", "vl_pago", "valor recebido"}
	saleNumberAlias  = []string{"numero_venda", "n_venda", "nº venda", "venda", "numero_os", "n_os", "os", "dav", "documento"}
	storeAliases     = []string{"loja", "filial", "cod_loja", "empresa"}
	paymentAliases   = []string{"forma_pagamento", "forma_pgto", "forma de pagamento", "pagamento", "meio_pagamento"}
	vixenIDAliases   = []string{"id_cliente", "cod_cliente", "codigo", "codigo_cliente", "id"}
	ossClientIDAlias = []string{"id_cliente", "cod_cliente", "codigo_cliente"}
)

// DefaultTable returns the built-in alias table for the known exports.
func DefaultTable() *Table {
	t := NewTable()

	t.Set(types.VixenID, types.ResourceTypeCustomer, Aliases{
		FieldRecordID:  vixenIDAliases,
		FieldName:      nameAliases,
		FieldEmail:     emailAliases,
		FieldPhone:     phoneAliases,
		FieldBirthdate: birthAliases,
		FieldNotes:     notesAliases,
		FieldStoreID:   storeAliases,
	})
	t.Set(types.VixenID, types.ResourceTypeSale, Aliases{
		FieldSaleNumber:    saleNumberAlias,
		FieldAmountTotal:   totalAliases,
		FieldAmountDown:    downAliases,
		FieldPaymentMethod: paymentAliases,
		FieldRecordID:      ossClientIDAlias,
		FieldName:          nameAliases,
		FieldEmail:         emailAliases,
		FieldPhone:         phoneAliases,
		FieldNotes:         notesAliases,
		FieldStoreID:       storeAliases,
	})

	t.Set(types.OSSID, types.ResourceTypeCustomer, Aliases{
		FieldRecordID:  ossClientIDAlias,
		FieldName:      nameAliases,
		FieldEmail:     emailAliases,
		FieldPhone:     phoneAliases,
		FieldBirthdate: birthAliases,
		FieldNotes:     notesAliases,
		FieldStoreID:   storeAliases,
	})
	t.Set(types.OSSID, types.ResourceTypeSale, Aliases{
		FieldSaleNumber:    saleNumberAlias,
		FieldAmountTotal:   totalAliases,
		FieldAmountDown:    downAliases,
		FieldPaymentMethod: paymentAliases,
		FieldRecordID:      ossClientIDAlias,
		FieldName:          nameAliases,
		FieldEmail:         emailAliases,
		FieldPhone:         phoneAliases,
		FieldBirthdate:     birthAliases,
		FieldNotes:         notesAliases,
		FieldStoreID:       storeAliases,
	})

	t.Set(types.CXSID, types.ResourceTypeSale, Aliases{
		FieldSaleNumber:    saleNumberAlias,
		FieldAmountTotal:   totalAliases,
		FieldAmountDown:    append([]string{"valor"}, downAliases...),
		FieldPaymentMethod: paymentAliases,
		FieldName:          nameAliases,
		FieldNotes:         notesAliases,
		FieldStoreID:       storeAliases,
	})

	return t
}
