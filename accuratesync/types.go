package accuratesync

// Accurate wraps every API payload in {d: ..., sp: {...}}.
type listEnvelope struct {
	D  []DocumentSummary `json:"d"`
	Sp struct {
		RowCount int `json:"rowCount"`
	} `json:"sp"`
}

type detailEnvelope struct {
	D *DocumentDetail `json:"d"`
}

// EntityRef is a nested reference (vendor, customer, item, branch) as Accurate
// returns it. IDs arrive as numbers on some documents and strings on others,
// so they stay untyped until sanitized.
type EntityRef struct {
	ID   any    `json:"id,omitempty"`
	No   string `json:"no,omitempty"`
	Name string `json:"name,omitempty"`
}

// DocumentSummary is one row of a list.do page. Only the fields requested via
// the `fields` parameter are populated; the rest stay zero.
type DocumentSummary struct {
	ID          any        `json:"id"`
	Number      string     `json:"number"`
	TransDate   string     `json:"transDate,omitempty"`
	StatusName  string     `json:"statusName,omitempty"`
	Vendor      *EntityRef `json:"vendor,omitempty"`
	Customer    *EntityRef `json:"customer,omitempty"`
	TotalAmount any        `json:"totalAmount,omitempty"`
	Currency    *struct {
		Code string `json:"code"`
	} `json:"currency,omitempty"`
	Branch     *EntityRef `json:"branch,omitempty"`
	ShipTo     string     `json:"shipTo,omitempty"`
	DriverName string     `json:"driverName,omitempty"`
}

// DocumentDetail is the full detail.do payload for one document.
type DocumentDetail struct {
	ID            any          `json:"id"`
	Number        string       `json:"number"`
	TransDate     string       `json:"transDate"`
	TransDateView string       `json:"transDateView"`
	StatusName    string       `json:"statusName"`
	DetailItem    []DetailItem `json:"detailItem"`
}

// DetailItem is one line of a document detail. Numeric fields are untyped
// because the API mixes numbers and formatted strings across documents.
type DetailItem struct {
	ID         any        `json:"id"`
	Item       *EntityRef `json:"item"`
	DetailName string     `json:"detailName"`
	Quantity   any        `json:"quantity"`
	ItemUnit   *struct {
		Name string `json:"name"`
	} `json:"itemUnit"`
	UnitPrice       any    `json:"unitPrice"`
	ItemDiscPercent any    `json:"itemDiscPercent"`
	DetailNotes     string `json:"detailNotes"`
}

type SyncPageRequest struct {
	Page int `json:"page"`
}

// SyncRunResult is returned to the caller of one page sync. Document-level
// failures are embedded here (first errorSampleLimit messages); they do not
// fail the invocation.
type SyncRunResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Processed    int      `json:"processed"`
	SuccessCount int      `json:"successCount"`
	FailCount    int      `json:"failCount"`
	HasMore      bool     `json:"hasMore"`
	NextPage     int      `json:"nextPage"`
	Errors       []string `json:"errors"`
}

type ShipmentLinkRequest struct {
	SoId     string   `json:"soId"`
	SoNumber string   `json:"soNumber"`
	Items    []string `json:"items"`
}

type MatchedPOItem struct {
	PoNumber string  `json:"poNumber"`
	ItemCode string  `json:"itemCode"`
	Quantity float64 `json:"quantity"`
}

type ShipmentLinkStats struct {
	TotalPOsFound int `json:"totalPOsFound"`
	MatchingItems int `json:"matchingItems"`
	Updated       int `json:"updated"`
	Created       int `json:"created"`
}

type ShipmentLinkResult struct {
	Success bool              `json:"s"`
	Message string            `json:"message"`
	Stats   ShipmentLinkStats `json:"stats"`
	Items   []MatchedPOItem   `json:"items"`
}

type DOMappingRequest struct {
	DoNumbers []string `json:"doNumbers"`
}

type DOItemMapping struct {
	ItemCode string `json:"itemCode"`
	DoNumber string `json:"doNumber"`
	DoDate   string `json:"doDate"`
}

type DOItemLine struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	QtyShipped float64 `json:"qty_shipped"`
	Unit       string  `json:"unit"`
}

type DODetailSummary struct {
	Number string       `json:"number"`
	Date   string       `json:"date"`
	Status string       `json:"status"`
	Items  []DOItemLine `json:"items"`
}

type DOMappingResult struct {
	Success   bool              `json:"s"`
	Mappings  []DOItemMapping   `json:"d"`
	DoDetails []DODetailSummary `json:"doDetails"`
}

type TrackingPageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type TrackingSalesOrder struct {
	DocumentSummary
	DetailItem []DetailItem `json:"detailItem"`
}

type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type TrackingPage struct {
	Success    bool                 `json:"s"`
	Items      []TrackingSalesOrder `json:"d"`
	Pagination Pagination           `json:"pagination"`
}

type ListAllRequest struct {
	Fields string `json:"fields"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	DocType string `json:"doc_type"`
	Page    int    `json:"page"`
}
