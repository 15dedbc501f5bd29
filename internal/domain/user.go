package domain

import "time"

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Pincode int    `json:"pincode"`
}

type UserAddress struct {
	Shipping Address `json:"shipping"`
	Billing  Address `json:"billing"`
}

// User is a registered storefront account.
type User struct {
	ID           string      `json:"id"`
	FName        string      `json:"fname"`
	LName        string      `json:"lname"`
	Email        string      `json:"email"`
	ProfileImage string      `json:"profileImage"`
	Phone        string      `json:"phone"`
	PasswordHash string      `json:"-"`
	Address      UserAddress `json:"address"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
