// internal/workers/loan/validate-loan-application/models.go
package validateloanapplication

// Input mirrors the variables the review process is started with.
type Input struct {
	ApplicationID string `json:"applicationId"`
	ReceiptNumber string `json:"receiptNumber"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	NIN           string `json:"nin,omitempty"`
	Amount        string `json:"amount"`
	Term          string `json:"term"`
	Interest      int64  `json:"interest"`
	TotalAmount   string `json:"totalAmount"`
}

type Output struct {
	Valid           bool     `json:"valid"`
	QuoteConsistent bool     `json:"quoteConsistent"`
	ExpectedTotal   string   `json:"expectedTotal,omitempty"`
	ValidationErrs  []string `json:"validationErrors,omitempty"`
}

const inputSchema = `{
  "type": "object",
  "required": ["receiptNumber", "name", "phone", "email", "amount", "term", "interest", "totalAmount"],
  "properties": {
    "receiptNumber": {"type": "string", "pattern": "^GFN-[0-9]+$"},
    "name":          {"type": "string", "minLength": 1, "maxLength": 200},
    "phone":         {"type": "string", "minLength": 1, "maxLength": 32},
    "email":         {"type": "string", "minLength": 3, "maxLength": 254},
    "amount":        {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"},
    "term":          {"type": "string", "enum": ["SHORT", "MEDIUM"]},
    "interest":      {"type": "integer", "minimum": 0, "maximum": 100},
    "totalAmount":   {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"}
  }
}`
