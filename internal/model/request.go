package model

// AddProductRequest represents the request payload for adding a product.
// When Name is empty and a scanned product with the same barcode is pending,
// its metadata is used.
type AddProductRequest struct {
	Barcode      string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Name         string `json:"name,omitempty" validate:"omitempty,max=200"`
	Brand        string `json:"brand,omitempty" validate:"omitempty,max=200"`
	Image        string `json:"image,omitempty" validate:"omitempty,url"`
	ExpiryDate   string `json:"expiryDate" validate:"required,datetime=2006-01-02"`
	ReminderDays int    `json:"reminderDays" validate:"min=0,max=365"`
}

// ProductView is a product with its expiry classification for display.
type ProductView struct {
	Product
	DaysLeft int    `json:"daysLeft"`
	Urgency  string `json:"urgency"`
	Status   string `json:"status"`
}

// ScanStatus represents the state of the scanner as seen by clients.
type ScanStatus struct {
	State       string       `json:"state"`
	Device      string       `json:"device,omitempty"`
	LastBarcode string       `json:"lastBarcode,omitempty"`
	Pending     *ProductInfo `json:"pending,omitempty"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	ErrorCode   string       `json:"errorCode,omitempty"`
	Hints       []string     `json:"hints,omitempty"`
}
