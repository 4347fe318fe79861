package types

// CustomerInfo is the denormalized customer snapshot stored on each order at
// creation time. Later customer edits never rewrite historical orders.
type CustomerInfo struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Store    string `json:"store,omitempty"`
	StoreNum string `json:"storenum,omitempty"`
}
