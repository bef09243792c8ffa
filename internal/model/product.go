package model

// DateLayout is the ISO calendar date layout used for expiry dates.
const DateLayout = "2006-01-02"

// Product represents a food item tracked in the fridge.
type Product struct {
	ID           int64  `json:"id"`
	Barcode      string `json:"barcode,omitempty"`
	Name         string `json:"name"`
	Brand        string `json:"brand"`
	Image        string `json:"image,omitempty"`
	ExpiryDate   string `json:"expiryDate"`
	ReminderDays int    `json:"reminderDays"`
}

// ProductInfo is the normalised metadata returned by a barcode lookup.
type ProductInfo struct {
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Brand   string `json:"brand"`
	Image   string `json:"image,omitempty"`
}

// ProductUpdate carries a partial update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name         *string `json:"name,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Image        *string `json:"image,omitempty"`
	ExpiryDate   *string `json:"expiryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReminderDays *int    `json:"reminderDays,omitempty" validate:"omitempty,min=0"`
}

// Apply merges the update into p. The id is never touched.
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.ExpiryDate != nil {
		p.ExpiryDate = *u.ExpiryDate
	}
	if u.ReminderDays != nil {
		p.ReminderDays = *u.ReminderDays
	}
	return p
}

// Notification is a derived, never persisted reminder for an expiring product.
type Notification struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	DaysLeft  int    `json:"daysLeft"`
}
