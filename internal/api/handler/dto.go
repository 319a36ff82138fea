package handler

// CreateClosureRequest opens (or returns) the closure for a calendar date
type CreateClosureRequest struct {
	Date string `json:"date" binding:"required"`
}

// IngestSettlementRequest carries the raw settlement export text
type IngestSettlementRequest struct {
	FileContent string `json:"file_content" binding:"required"`
}

// ResolveDivergenceRequest records a resolution on a single divergence
type ResolveDivergenceRequest struct {
	Resolution     string `json:"resolution" binding:"required,oneof=approved corrected ignored"`
	Justification  string `json:"justification" binding:"required"`
	ResolvedByID   string `json:"resolved_by_id" binding:"required"`
	ResolvedByName string `json:"resolved_by_name" binding:"required"`
}

// ResolveBatchRequest resolves many divergences with a shared justification
type ResolveBatchRequest struct {
	DivergenceIDs  []string `json:"divergence_ids" binding:"required"`
	Resolution     string   `json:"resolution" binding:"required,oneof=approved corrected ignored"`
	Justification  string   `json:"justification" binding:"required"`
	ResolvedByID   string   `json:"resolved_by_id" binding:"required"`
	ResolvedByName string   `json:"resolved_by_name" binding:"required"`
}

// ListClosuresParams bounds the closure listing period
type ListClosuresParams struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=50" binding:"min=1,max=200"`
}

// ClosureResponse represents a daily closure in API responses. Monetary values
// are integer cents.
type ClosureResponse struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Status string `json:"status"`

	TotalCash              int64 `json:"total_cash"`
	TotalPix               int64 `json:"total_pix"`
	TotalDebit             int64 `json:"total_debit"`
	TotalCreditSingle      int64 `json:"total_credit_single"`
	TotalCreditInstallment int64 `json:"total_credit_installment"`

	AcquirerTotalDebit  int64 `json:"acquirer_total_debit"`
	AcquirerTotalCredit int64 `json:"acquirer_total_credit"`

	MatchedCount     int `json:"matched_count"`
	DivergentCount   int `json:"divergent_count"`
	NotRecordedCount int `json:"not_recorded_count"`
	PhantomCount     int `json:"phantom_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DivergenceResponse represents a divergence in API responses
type DivergenceResponse struct {
	ID             string `json:"id"`
	ClosureID      string `json:"closure_id"`
	Kind           string `json:"kind"`
	ReferenceCode  string `json:"reference_code"`
	ExpectedAmount *int64 `json:"expected_amount,omitempty"`
	FoundAmount    *int64 `json:"found_amount,omitempty"`
	Description    string `json:"description"`
	Resolution     string `json:"resolution"`
	Justification  string `json:"justification,omitempty"`
	ResolvedByID   string `json:"resolved_by_id,omitempty"`
	ResolvedBy     string `json:"resolved_by,omitempty"`
	ResolvedAt     string `json:"resolved_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// TransactionResponse represents a parsed settlement transaction in API responses
type TransactionResponse struct {
	ID            string  `json:"id"`
	OccurredAt    string  `json:"occurred_at"`
	Status        string  `json:"status"`
	GrossAmount   int64   `json:"gross_amount"`
	NetAmount     int64   `json:"net_amount"`
	Modality      string  `json:"modality"`
	Installments  int     `json:"installments"`
	CardBrand     string  `json:"card_brand"`
	MDRRate       float64 `json:"mdr_rate"`
	MDRAmount     int64   `json:"mdr_amount"`
	ReferenceCode string  `json:"reference_code"`
}

// PaymentResponse represents an internal payment leg in API responses
type PaymentResponse struct {
	ID            string `json:"id"`
	SaleID        string `json:"sale_id"`
	SaleDate      string `json:"sale_date"`
	Amount        int64  `json:"amount"`
	Modality      string `json:"modality"`
	Installments  int    `json:"installments"`
	CardBrand     string `json:"card_brand"`
	ReferenceCode string `json:"reference_code"`
}

// ClosureDetailsResponse bundles a closure with its children and the day's
// internal payments
type ClosureDetailsResponse struct {
	Closure      ClosureResponse       `json:"closure"`
	Transactions []TransactionResponse `json:"transactions"`
	Divergences  []DivergenceResponse  `json:"divergences"`
	Payments     []PaymentResponse     `json:"payments"`
}

// IngestResponse summarizes a settlement ingest
type IngestResponse struct {
	Closure     ClosureResponse      `json:"closure"`
	Divergences []DivergenceResponse `json:"divergences"`
	TotalRows   int                  `json:"total_rows"`
	SkippedRows int                  `json:"skipped_rows"`
}

// BatchResolutionResponse summarizes a batch resolution
type BatchResolutionResponse struct {
	Resolved int `json:"resolved"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
}

// AuditEventResponse represents an audit trail entry in API responses
type AuditEventResponse struct {
	ID          string                 `json:"id"`
	ClosureDate string                 `json:"closure_date"`
	Action      string                 `json:"action"`
	ActorID     string                 `json:"actor_id,omitempty"`
	ActorName   string                 `json:"actor_name,omitempty"`
	Summary     string                 `json:"summary"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}
