package claim

// Step tags the claim session state machine. Each step is entered only from
// its predecessor; cancellation resets to Idle.
type Step string

const (
	StepIdle               Step = "idle"
	StepAmountEntry        Step = "amount_entry"
	StepPaymentSelection   Step = "payment_selection"
	StepEvidenceCollection Step = "evidence_collection"
	StepFinalizing         Step = "finalizing"
)

// DocumentCategory labels a supporting document. Categories are informational
// only; no completeness is enforced.
type DocumentCategory string

const (
	CategoryCertificate    DocumentCategory = "certificate"
	CategoryPrescription   DocumentCategory = "prescription"
	CategoryReceipt        DocumentCategory = "receipt"
	CategoryGenericReceipt DocumentCategory = "generic-receipt"
)

// Valid reports whether the category is one this workflow understands.
func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryCertificate, CategoryPrescription, CategoryReceipt, CategoryGenericReceipt:
		return true
	}
	return false
}

// Label is the human-readable name used in audit captions.
func (c DocumentCategory) Label() string {
	switch c {
	case CategoryCertificate:
		return "Medical Certificate"
	case CategoryPrescription:
		return "Prescription"
	case CategoryReceipt, CategoryGenericReceipt:
		return "Receipt"
	}
	return "Document"
}

// Attachment is one uploaded supporting document held in memory for the life
// of the draft. Nothing is persisted; durability begins at commit.
type Attachment struct {
	Category DocumentCategory
	Filename string
	Content  []byte
}

// Payment is the payment-method variant for a draft. Cash carries the
// collected evidence; credit carries nothing, since no documents apply.
type Payment interface {
	isPayment()
	Method() string
}

// CashPayment accumulates zero or more optional attachments.
type CashPayment struct {
	Attachments []Attachment
}

func (CashPayment) isPayment()     {}
func (CashPayment) Method() string { return "cash" }

// CreditPayment needs no evidence.
type CreditPayment struct{}

func (CreditPayment) isPayment()     {}
func (CreditPayment) Method() string { return "credit" }

// ClaimDraft is the ephemeral in-progress claim. Exactly one may exist per
// session; it is replaced wholesale on transitions and destroyed on commit,
// cancellation, or a new policy lookup. Amount is frozen once validation
// accepts it.
type ClaimDraft struct {
	BenefitIndex int
	BenefitType  string
	Amount       float64
	Payment      Payment
}

// Evidence returns the attachments collected so far, empty for credit drafts.
func (d ClaimDraft) Evidence() []Attachment {
	if cash, ok := d.Payment.(CashPayment); ok {
		return cash.Attachments
	}
	return nil
}
