package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	PushToken    *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in other records
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Identity is the caller resolved from a session token
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Property represents a listing owned by a user
type Property struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  *string      `json:"description,omitempty"`
	Price        float64      `json:"price"`
	Location     string       `json:"location"`
	PropertyType string       `json:"propertyType"`
	Bedrooms     *int         `json:"bedrooms,omitempty"`
	Bathrooms    *int         `json:"bathrooms,omitempty"`
	Area         *float64     `json:"area,omitempty"`
	Images       []string     `json:"images"`
	OwnerID      string       `json:"ownerId"`
	Owner        *UserSummary `json:"owner,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// PropertyFilter holds search predicates; nil fields are not applied
type PropertyFilter struct {
	OwnerID      *string
	Location     *string
	MinPrice     *float64
	MaxPrice     *float64
	PropertyType *string
	Bedrooms     *int
	Bathrooms    *int
}

// Message is a single in-app message about a property
type Message struct {
	ID         string       `json:"id"`
	PropertyID string       `json:"propertyId"`
	SenderID   string       `json:"senderId"`
	ReceiverID string       `json:"receiverId"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"createdAt"`
	ReadAt     *time.Time   `json:"readAt,omitempty"`
	Sender     *UserSummary `json:"sender,omitempty"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}

// Conversation is the derived per-property thread summary for one user
type Conversation struct {
	PropertyID    string    `json:"propertyId"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	OwnerID       string    `json:"ownerId"`
	LatestMessage *Message  `json:"latestMessage,omitempty"`
	UnreadCount   int       `json:"unreadCount"`
	CreatedAt     time.Time `json:"-"`
}
