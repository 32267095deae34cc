package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"merchant-sim/internal/domain/entities"
)

func TestProduct_HasFixedPrice(t *testing.T) {
	fixed := entities.Product{ProductID: "P1", FixedPrice: null.Float64From(50)}
	assert.True(t, fixed.HasFixedPrice())

	variable := entities.Product{ProductID: "P2"}
	assert.False(t, variable.HasFixedPrice())
}

func TestFilterCatalog(t *testing.T) {
	catalogs := []entities.ContractCatalog{
		{
			ContractID: "C1",
			OperatorID: "OP1",
			Products: []entities.Product{
				{ProductID: "P1", Type: entities.ProductTypeTopUp},
				{ProductID: "P2", Type: entities.ProductTypeVoucher},
			},
		},
		{
			ContractID: "C2",
			OperatorID: "OP2",
			Products: []entities.Product{
				{ProductID: "P3", Type: entities.ProductTypeBillPayPost},
			},
		},
	}

	products := entities.FilterCatalog(catalogs, []string{"C1"})
	assert.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, "C1", p.ContractID)
		assert.Equal(t, "OP1", p.OperatorID)
	}
}

func TestFilterCatalog_NoEligibleSetKeepsEverything(t *testing.T) {
	catalogs := []entities.ContractCatalog{
		{ContractID: "C1", OperatorID: "OP1", Products: []entities.Product{{ProductID: "P1"}}},
		{ContractID: "C2", OperatorID: "OP2", Products: []entities.Product{{ProductID: "P2"}}},
	}

	products := entities.FilterCatalog(catalogs, nil)
	assert.Len(t, products, 2)
}

func TestFilterCatalog_UnknownContract(t *testing.T) {
	catalogs := []entities.ContractCatalog{
		{ContractID: "C1", OperatorID: "OP1", Products: []entities.Product{{ProductID: "P1"}}},
	}

	products := entities.FilterCatalog(catalogs, []string{"C9"})
	assert.Empty(t, products)
}
