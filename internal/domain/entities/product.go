package entities

import "github.com/volatiletech/null/v8"

// ProductType governs how a sale request is constructed
type ProductType string

const (
	ProductTypeTopUp       ProductType = "TOPUP"
	ProductTypeVoucher     ProductType = "VOUCHER"
	ProductTypeBillPayPre  ProductType = "BILLPAY_PREPAY"
	ProductTypeBillPayPost ProductType = "BILLPAY_POSTPAY"
)

// Product is one sellable item from the backend catalog
type Product struct {
	ProductID  string       `json:"productId"`
	Name       string       `json:"name"`
	OperatorID string       `json:"operatorId"`
	ContractID string       `json:"contractId"`
	Type       ProductType  `json:"type"`
	FixedPrice null.Float64 `json:"fixedPrice,omitempty"`
}

// HasFixedPrice reports whether the product sells at a fixed value
func (p Product) HasFixedPrice() bool {
	return p.FixedPrice.Valid
}

// ContractCatalog is one contract's slice of the backend product catalog
type ContractCatalog struct {
	ContractID string    `json:"contractId"`
	OperatorID string    `json:"operatorId"`
	Products   []Product `json:"products"`
}

// FilterCatalog flattens contract catalogs down to the products of the
// merchant's eligible contracts; an empty eligible set keeps everything
func FilterCatalog(catalogs []ContractCatalog, eligibleContracts []string) []Product {
	eligible := make(map[string]bool, len(eligibleContracts))
	for _, id := range eligibleContracts {
		eligible[id] = true
	}

	var products []Product
	for _, c := range catalogs {
		if len(eligible) > 0 && !eligible[c.ContractID] {
			continue
		}
		for _, p := range c.Products {
			p.ContractID = c.ContractID
			p.OperatorID = c.OperatorID
			products = append(products, p)
		}
	}
	return products
}
