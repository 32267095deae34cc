package gateway

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"merchant-sim/internal/domain/entities"
)

// Sale step kinds; bill payments verify the account before paying
const (
	StepVerification = "VERIFICATION"
	StepPayment      = "PAYMENT"
)

// SaleStep is one outbound request of a sale
type SaleStep struct {
	Step     string
	Amount   float64
	Metadata map[string]string
}

// BuildSaleRequests maps (product, value, reference) to the ordered list of
// requests a sale of that product type requires
func BuildSaleRequests(product entities.Product, value float64, reference string) []SaleStep {
	switch product.Type {
	case entities.ProductTypeBillPayPre, entities.ProductTypeBillPayPost:
		metadata := map[string]string{
			"productId":  product.ProductID,
			"operatorId": product.OperatorID,
			"accountRef": reference,
		}
		if product.Type == entities.ProductTypeBillPayPre {
			metadata["billType"] = "PREPAY"
		} else {
			metadata["billType"] = "POSTPAY"
		}
		return []SaleStep{
			{Step: StepVerification, Amount: value, Metadata: metadata},
			{Step: StepPayment, Amount: value, Metadata: metadata},
		}
	case entities.ProductTypeVoucher:
		return []SaleStep{{
			Step:   StepPayment,
			Amount: value,
			Metadata: map[string]string{
				"productId":  product.ProductID,
				"operatorId": product.OperatorID,
				"serial":     reference,
			},
		}}
	default:
		// mobile top-up
		return []SaleStep{{
			Step:   StepPayment,
			Amount: value,
			Metadata: map[string]string{
				"productId":  product.ProductID,
				"operatorId": product.OperatorID,
				"msisdn":     reference,
			},
		}}
	}
}

// NewSaleReference generates a synthetic recipient identifier for the
// product type: a phone number for top-ups, an opaque reference otherwise
func NewSaleReference(productType entities.ProductType) string {
	if productType == entities.ProductTypeTopUp {
		return fmt.Sprintf("2547%08d", rand.Intn(100000000))
	}
	return uuid.New().String()
}
