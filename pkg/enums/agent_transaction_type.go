package enums

import "fmt"

// AgentTransactionType maps to the agent_transaction_type_enum enum in
// Postgres.
type AgentTransactionType string

const (
	AgentTransactionTypeCollectCOD AgentTransactionType = "collect_cod"
	AgentTransactionTypePayFee     AgentTransactionType = "pay_fee"
	AgentTransactionTypeDepositCOD AgentTransactionType = "deposit_cod"
	AgentTransactionTypeReturnCOD  AgentTransactionType = "return_cod"
	AgentTransactionTypeBonus      AgentTransactionType = "bonus"
)

var validAgentTransactionTypes = []AgentTransactionType{
	AgentTransactionTypeCollectCOD,
	AgentTransactionTypePayFee,
	AgentTransactionTypeDepositCOD,
	AgentTransactionTypeReturnCOD,
	AgentTransactionTypeBonus,
}

// String implements fmt.Stringer.
func (t AgentTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known AgentTransactionType.
func (t AgentTransactionType) IsValid() bool {
	for _, candidate := range validAgentTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RequiresShipment reports whether transactions of this type must reference
// a shipment. Deposits are settled against the agent as a whole.
func (t AgentTransactionType) RequiresShipment() bool {
	return t != AgentTransactionTypeDepositCOD
}

// ParseAgentTransactionType converts raw input into an AgentTransactionType.
func ParseAgentTransactionType(value string) (AgentTransactionType, error) {
	for _, candidate := range validAgentTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent transaction type %q", value)
}
