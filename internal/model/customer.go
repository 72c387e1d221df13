package model

// Customer is the part of the customer directory the trading core needs.
type Customer struct {
	ID        int64  `json:"id"`
	Number    string `json:"customerNumber"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}
